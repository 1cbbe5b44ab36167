package botapp

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/artemovbasil-oss/basil-arcana-sub000/internal/config"
	"github.com/artemovbasil-oss/basil-arcana-sub000/internal/domain/enums"
	tginfra "github.com/artemovbasil-oss/basil-arcana-sub000/internal/infra/telegram"
	pgrepo "github.com/artemovbasil-oss/basil-arcana-sub000/internal/repo/postgres"
	paymentsvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/payments"
)

const (
	paymentThanksText  = "Оплата получена, доступ активирован."
	paymentFailedText  = "Не удалось применить оплату, напишите в поддержку."
	startText          = "Откройте Mini App, чтобы продолжить."
	unknownInvoiceText = "invoice not found"
)

// App is the bot process. It answers pre-checkout queries and settles
// successful payments against the invoice ledger, so a purchase lands
// even when the mini app never reports it.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	postgres *pgxpool.Pool
	bot      *tginfra.Bot
	payments *paymentsvc.Service
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for bot app: %w", err)
	}

	invoiceRepo := pgrepo.NewInvoiceRepo(pool)
	paymentService, err := paymentsvc.NewService(invoiceRepo, cfg.Packs)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("payments service: %w", err)
	}

	var bot *tginfra.Bot
	if strings.TrimSpace(cfg.Bot.Token) != "" {
		bot, err = tginfra.NewBot(cfg.Bot.Token)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("init telegram bot: %w", err)
		}
	} else {
		logger.Warn("BOT_TOKEN is empty, payment listener disabled")
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		postgres: pool,
		bot:      bot,
		payments: paymentService,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("bot app started")

	if a.bot == nil {
		<-ctx.Done()
		a.logger.Info("bot app stopped")
		return nil
	}

	err := a.bot.Listen(ctx, tginfra.Handlers{
		OnPreCheckout: a.handlePreCheckout,
		OnPayment:     a.handlePayment,
		OnCommand:     a.handleCommand,
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	a.logger.Info("bot app stopped")
	return nil
}

func (a *App) handlePreCheckout(ctx context.Context, update tginfra.PreCheckoutUpdate) error {
	err := a.payments.Precheck(ctx, update.UserID, update.InvoicePayload)
	if err == nil {
		return a.bot.AnswerPreCheckout(ctx, update.QueryID, "")
	}

	a.logger.Warn("pre-checkout declined",
		zap.Int64("user_id", update.UserID),
		zap.String("payload", update.InvoicePayload),
		zap.Error(err),
	)

	switch {
	case errors.Is(err, paymentsvc.ErrInvoiceNotFound):
		return a.bot.AnswerPreCheckout(ctx, update.QueryID, unknownInvoiceText)
	case errors.Is(err, paymentsvc.ErrInvoiceUserMismatch), errors.Is(err, paymentsvc.ErrValidation):
		return a.bot.AnswerPreCheckout(ctx, update.QueryID, "invoice is not payable")
	}
	return err
}

func (a *App) handlePayment(ctx context.Context, update tginfra.PaymentUpdate) error {
	result, err := a.payments.Confirm(ctx, update.UserID, paymentsvc.ConfirmInput{
		Payload: update.InvoicePayload,
		Status:  string(enums.InvoicePaid),
	})
	if err != nil {
		a.logger.Error("payment confirmation failed",
			zap.Int64("user_id", update.UserID),
			zap.String("payload", update.InvoicePayload),
			zap.Error(err),
		)
		return a.bot.SendText(ctx, update.ChatID, paymentFailedText)
	}

	a.logger.Info("payment settled",
		zap.Int64("user_id", update.UserID),
		zap.String("pack_id", result.PackID),
		zap.Bool("grant_applied", result.GrantApplied),
	)
	return a.bot.SendText(ctx, update.ChatID, paymentThanksText)
}

func (a *App) handleCommand(ctx context.Context, update tginfra.CommandUpdate) error {
	switch strings.ToLower(strings.TrimSpace(update.Command)) {
	case "start":
		return a.bot.SendText(ctx, update.ChatID, startText)
	default:
		return nil
	}
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
}
