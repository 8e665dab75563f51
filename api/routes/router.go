package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/campuspoints-backend/api/controllers"
	"github.com/angelmondragon/campuspoints-backend/api/middleware"
	"github.com/angelmondragon/campuspoints-backend/internal/auth"
	"github.com/angelmondragon/campuspoints-backend/internal/events"
	"github.com/angelmondragon/campuspoints-backend/internal/promotions"
	"github.com/angelmondragon/campuspoints-backend/internal/transactions"
	"github.com/angelmondragon/campuspoints-backend/internal/users"
	"github.com/angelmondragon/campuspoints-backend/pkg/auth/session"
	"github.com/angelmondragon/campuspoints-backend/pkg/config"
	"github.com/angelmondragon/campuspoints-backend/pkg/enums"
	"github.com/angelmondragon/campuspoints-backend/pkg/logger"
	"github.com/angelmondragon/campuspoints-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(ctx context.Context, oldAccessID string, userID uuid.UUID, provided string) (string, string, error)
	Revoke(ctx context.Context, accessID string) error
}

// redisStore backs both the idempotency replay cache and the auth rate limits.
type redisStore interface {
	redis.IdempotencyStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	store redisStore,
	sessionManager sessionManager,
	authService auth.Service,
	userService users.Service,
	transactionService transactions.Service,
	eventService events.Service,
	promotionService promotions.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.RateLimit.LoginWindow,
		cfg.RateLimit.LoginIPLimit,
		cfg.RateLimit.LoginUtoridLimit,
	)
	resetPolicy := middleware.NewAuthRateLimitPolicy(
		"resets",
		cfg.RateLimit.ResetWindow,
		cfg.RateLimit.ResetIPLimit,
		0,
	)

	readiness := map[string]controllers.Pinger{"database": dbP}
	if store != nil {
		if pinger, ok := store.(controllers.Pinger); ok {
			readiness["redis"] = pinger
		}
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, readiness, logg))
	})
	if cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(loginPolicy, store, logg)).Post("/tokens", controllers.AuthLogin(authService, logg))
		r.Post("/refresh", controllers.AuthRefresh(sessionManager, cfg.JWT, logg))
		r.Post("/logout", controllers.AuthLogout(sessionManager, cfg.JWT, logg))
		r.With(middleware.AuthRateLimit(resetPolicy, store, logg)).Post("/resets", controllers.AuthRequestReset(authService, logg))
		r.Post("/resets/{resetToken}", controllers.AuthCompleteReset(authService, logg))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessionManager, logg))
		r.Use(middleware.Idempotency(store, logg))

		cashier := middleware.RequireRole(enums.RoleCashier, logg)
		manager := middleware.RequireRole(enums.RoleManager, logg)

		r.With(cashier).Post("/users", controllers.UsersCreate(userService, logg))
		r.With(manager).Get("/users", controllers.UsersList(userService, logg))
		r.Get("/users/me", controllers.UsersMe(userService, logg))
		r.Patch("/users/me", controllers.UsersUpdateMe(userService, logg))
		r.Patch("/users/me/password", controllers.UsersChangePassword(userService, logg))
		r.Get("/users/me/transactions", controllers.TransactionsListMine(transactionService, logg))
		r.Post("/users/me/transactions", controllers.UsersRedeem(transactionService, logg))
		r.With(cashier).Get("/users/{userId}", controllers.UsersGet(userService, logg))
		r.With(manager).Patch("/users/{userId}", controllers.UsersUpdate(userService, logg))
		r.Post("/users/{userId}/transactions", controllers.UsersTransfer(transactionService, logg))

		r.With(cashier).Post("/transactions", controllers.TransactionsCreate(transactionService, logg))
		r.With(manager).Get("/transactions", controllers.TransactionsList(transactionService, logg))
		r.With(manager).Get("/transactions/{transactionId}", controllers.TransactionsGet(transactionService, logg))
		r.With(manager).Patch("/transactions/{transactionId}/suspicious", controllers.TransactionsSetSuspicious(transactionService, logg))
		r.With(cashier).Patch("/transactions/{transactionId}/processed", controllers.TransactionsProcess(transactionService, logg))

		r.With(manager).Post("/events", controllers.EventsCreate(eventService, logg))
		r.Get("/events", controllers.EventsList(eventService, logg))
		r.Get("/events/{eventId}", controllers.EventsGet(eventService, logg))
		r.Patch("/events/{eventId}", controllers.EventsUpdate(eventService, logg))
		r.With(manager).Delete("/events/{eventId}", controllers.EventsDelete(eventService, logg))
		r.With(manager).Post("/events/{eventId}/organizers", controllers.EventsAddOrganizer(eventService, logg))
		r.With(manager).Delete("/events/{eventId}/organizers/{userId}", controllers.EventsRemoveOrganizer(eventService, logg))
		r.Post("/events/{eventId}/guests", controllers.EventsAddGuest(eventService, logg))
		r.Post("/events/{eventId}/guests/me", controllers.EventsRSVP(eventService, logg))
		r.Delete("/events/{eventId}/guests/me", controllers.EventsCancelRSVP(eventService, logg))
		r.With(manager).Delete("/events/{eventId}/guests/{userId}", controllers.EventsRemoveGuest(eventService, logg))
		r.Post("/events/{eventId}/transactions", controllers.EventsAward(transactionService, logg))

		r.With(manager).Post("/promotions", controllers.PromotionsCreate(promotionService, logg))
		r.Get("/promotions", controllers.PromotionsList(promotionService, logg))
		r.Get("/promotions/{promotionId}", controllers.PromotionsGet(promotionService, logg))
		r.With(manager).Patch("/promotions/{promotionId}", controllers.PromotionsUpdate(promotionService, logg))
		r.With(manager).Delete("/promotions/{promotionId}", controllers.PromotionsDelete(promotionService, logg))
	})

	return r
}
