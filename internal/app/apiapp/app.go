package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/artemovbasil-oss/basil-arcana-sub000/internal/config"
	pgrepo "github.com/artemovbasil-oss/basil-arcana-sub000/internal/repo/postgres"
	redrepo "github.com/artemovbasil-oss/basil-arcana-sub000/internal/repo/redis"
	authsvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/auth"
	insightsvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/insights"
	paymentsvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/payments"
	profilesvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/profiles"
	ratesvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/rate"
	referralsvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/referrals"
	subsvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/subscriptions"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
		if err := pgrepo.EnsureSchema(ctx, pool); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	windowRepo := redrepo.NewWindowRepo(redisClient)
	userRepo := pgrepo.NewUserRepo(pool)
	subscriptionRepo := pgrepo.NewSubscriptionRepo(pool)
	energyRepo := pgrepo.NewEnergyRepo(pool)
	invoiceRepo := pgrepo.NewInvoiceRepo(pool)
	referralRepo := pgrepo.NewReferralRepo(pool)
	activityRepo := pgrepo.NewActivityRepo(pool)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	initDataValidator := authsvc.NewInitDataValidator(cfg.Bot.Token)
	rateLimiter := ratesvc.NewLimiter(windowRepo, cfg.Rate.ConfirmPerMinute, cfg.Rate.ClaimPerMinute)

	paymentService, err := paymentsvc.NewService(invoiceRepo, cfg.Packs)
	if err != nil {
		return nil, fmt.Errorf("payments service: %w", err)
	}
	subscriptionService := subsvc.NewService(pool, subscriptionRepo)
	referralService := referralsvc.NewService(userRepo, referralRepo, cfg.Referral.BonusCredits)
	profileService := profilesvc.NewService(profilesvc.Dependencies{
		Profiles:  userRepo,
		Subs:      subscriptionRepo,
		Energy:    energyRepo,
		Referrals: referralRepo,
		Activity:  activityRepo,
	})
	insightsService := insightsvc.NewService(activityRepo, energyRepo, cfg.Insights)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		ProfileService:      profileService,
		PaymentService:      paymentService,
		SubscriptionService: subscriptionService,
		ReferralService:     referralService,
		InsightsService:     insightsService,
		RateLimiter:         rateLimiter,
		InitDataValidator:   initDataValidator,
		JWTManager:          jwtManager,
		Logger:              log,
		Config:              cfg,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
