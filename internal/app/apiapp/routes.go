package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/artemovbasil-oss/basil-arcana-sub000/internal/config"
	authsvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/auth"
	insightsvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/insights"
	paymentsvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/payments"
	profilesvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/profiles"
	ratesvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/rate"
	referralsvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/referrals"
	subsvc "github.com/artemovbasil-oss/basil-arcana-sub000/internal/services/subscriptions"
	"github.com/artemovbasil-oss/basil-arcana-sub000/internal/transport/http/handlers"
)

type Dependencies struct {
	ProfileService      *profilesvc.Service
	PaymentService      *paymentsvc.Service
	SubscriptionService *subsvc.Service
	ReferralService     *referralsvc.Service
	InsightsService     *insightsvc.Service
	RateLimiter         *ratesvc.Limiter
	InitDataValidator   *authsvc.InitDataValidator
	JWTManager          *authsvc.JWTManager
	Logger              *zap.Logger
	Config              config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	profileHandler := handlers.NewProfileHandler(deps.ProfileService)
	paymentsHandler := handlers.NewPaymentsHandler(deps.PaymentService, deps.RateLimiter)
	referralsHandler := handlers.NewReferralsHandler(deps.ReferralService, deps.RateLimiter)
	insightsHandler := handlers.NewInsightsHandler(deps.InsightsService)
	consultationsHandler := handlers.NewConsultationsHandler(deps.SubscriptionService)
	subscriptionsHandler := handlers.NewSubscriptionsHandler(deps.SubscriptionService)

	userMW := InitDataAuthMiddleware(deps.InitDataValidator, deps.Logger)
	operatorMW := OperatorAuthMiddleware(deps.JWTManager, deps.Logger)

	r.Get("/healthz", healthHandler.Get)

	r.Route("/v1", func(r chi.Router) {
		r.With(userMW).Post("/profile/touch", profileHandler.Touch)
		r.With(userMW).Get("/dashboard", profileHandler.Dashboard)
		r.Get("/payments/packs", paymentsHandler.Packs)
		r.With(userMW).Post("/payments/invoice", paymentsHandler.Invoice)
		r.With(userMW).Post("/payments/confirm", paymentsHandler.Confirm)
		r.With(userMW).Post("/referrals/claim", referralsHandler.Claim)
		r.With(userMW).Post("/queries", insightsHandler.RecordQuery)
		r.With(userMW).Get("/insights/streak", insightsHandler.Streak)

		r.With(operatorMW).Post("/consultations/complete", consultationsHandler.Complete)
		r.With(operatorMW).Get("/subscriptions/active", subscriptionsHandler.Active)
	})
}
