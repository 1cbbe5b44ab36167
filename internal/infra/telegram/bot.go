package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Bot struct {
	api *tgbotapi.BotAPI
}

// PreCheckoutUpdate is Telegram asking whether the payment may proceed.
// It must be answered within 10 seconds or the payment fails.
type PreCheckoutUpdate struct {
	QueryID        string
	UserID         int64
	InvoicePayload string
	Currency       string
	TotalAmount    int
}

// PaymentUpdate arrives after Telegram has charged the user.
type PaymentUpdate struct {
	ChatID         int64
	UserID         int64
	InvoicePayload string
	Currency       string
	TotalAmount    int
}

type CommandUpdate struct {
	ChatID   int64
	UserID   int64
	Username string
	Command  string
	Args     string
}

type Handlers struct {
	OnPreCheckout func(context.Context, PreCheckoutUpdate) error
	OnPayment     func(context.Context, PaymentUpdate) error
	OnCommand     func(context.Context, CommandUpdate) error
}

func NewBot(token string) (*Bot, error) {
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("telegram bot token is empty")
	}

	api, err := tgbotapi.NewBotAPI(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("create telegram bot api: %w", err)
	}

	return &Bot{api: api}, nil
}

func (b *Bot) Listen(ctx context.Context, handlers Handlers) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}

	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := b.api.GetUpdatesChan(updateCfg)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update := <-updates:
			if update.PreCheckoutQuery != nil && handlers.OnPreCheckout != nil {
				err := handlers.OnPreCheckout(ctx, PreCheckoutUpdate{
					QueryID:        update.PreCheckoutQuery.ID,
					UserID:         update.PreCheckoutQuery.From.ID,
					InvoicePayload: update.PreCheckoutQuery.InvoicePayload,
					Currency:       update.PreCheckoutQuery.Currency,
					TotalAmount:    update.PreCheckoutQuery.TotalAmount,
				})
				if err != nil {
					return err
				}
				continue
			}

			if update.Message == nil || update.Message.From == nil {
				continue
			}

			if update.Message.SuccessfulPayment != nil && handlers.OnPayment != nil {
				err := handlers.OnPayment(ctx, PaymentUpdate{
					ChatID:         update.Message.Chat.ID,
					UserID:         update.Message.From.ID,
					InvoicePayload: update.Message.SuccessfulPayment.InvoicePayload,
					Currency:       update.Message.SuccessfulPayment.Currency,
					TotalAmount:    update.Message.SuccessfulPayment.TotalAmount,
				})
				if err != nil {
					return err
				}
				continue
			}

			if update.Message.IsCommand() && handlers.OnCommand != nil {
				err := handlers.OnCommand(ctx, CommandUpdate{
					ChatID:   update.Message.Chat.ID,
					UserID:   update.Message.From.ID,
					Username: update.Message.From.UserName,
					Command:  update.Message.Command(),
					Args:     update.Message.CommandArguments(),
				})
				if err != nil {
					return err
				}
			}
		}
	}
}

// AnswerPreCheckout approves or declines a pending payment. An empty
// errorMessage approves it.
func (b *Bot) AnswerPreCheckout(ctx context.Context, queryID, errorMessage string) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if strings.TrimSpace(queryID) == "" {
		return fmt.Errorf("pre-checkout query id is required")
	}

	cfg := tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: queryID,
		OK:                 errorMessage == "",
		ErrorMessage:       errorMessage,
	}
	if _, err := b.api.Request(cfg); err != nil {
		return fmt.Errorf("answer pre-checkout query: %w", err)
	}

	_ = ctx
	return nil
}

func (b *Bot) SendText(ctx context.Context, chatID int64, text string) error {
	if b == nil || b.api == nil {
		return fmt.Errorf("telegram bot is not initialized")
	}
	if chatID == 0 {
		return fmt.Errorf("chat id is required")
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	_ = ctx
	return nil
}
