package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tablesidehq/tableside-backend/api/controllers"
	"github.com/tablesidehq/tableside-backend/api/middleware"
	"github.com/tablesidehq/tableside-backend/internal/auth"
	"github.com/tablesidehq/tableside-backend/internal/cart"
	checkoutsvc "github.com/tablesidehq/tableside-backend/internal/checkout"
	"github.com/tablesidehq/tableside-backend/internal/payment"
	"github.com/tablesidehq/tableside-backend/internal/session"
	"github.com/tablesidehq/tableside-backend/internal/tables"
	"github.com/tablesidehq/tableside-backend/pkg/config"
	"github.com/tablesidehq/tableside-backend/pkg/db"
	"github.com/tablesidehq/tableside-backend/pkg/logger"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config     *config.Config
	Logger     *logger.Logger
	DBPinger   db.Pinger
	RedisP     db.Pinger
	Gatherer   prometheus.Gatherer
	Sessions   *session.Manager
	Carts      cart.Service
	Checkout   checkoutsvc.Service
	Payments   *payment.ReturnHandler
	Tables     tables.Service
	Auth       auth.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, deps.DBPinger, deps.RedisP))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.GuestSession(cfg.Session, logg))

		r.Get("/tables/scan/{qrToken}", controllers.ScanTable(deps.Tables, deps.Sessions, logg))
		r.Get("/session", controllers.SessionState(deps.Sessions, deps.Carts, logg))
		r.Post("/session/payment-success", controllers.ConsumePaymentSuccess(deps.Sessions, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(deps.Carts, logg))
			r.Delete("/", controllers.CartClear(deps.Carts, logg))
			r.Post("/items", controllers.CartAddItem(deps.Carts, logg))
			r.Patch("/items", controllers.CartUpdateItem(deps.Carts, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(deps.Carts, logg))
		})

		r.Post("/checkout", controllers.Checkout(deps.Checkout, logg))
		r.Get("/checkout/summary", controllers.CheckoutSummary(deps.Checkout, logg))

		r.Get("/payments/return", controllers.PaymentReturn(deps.Payments, logg))
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Post("/auth/login", controllers.AuthLogin(deps.Auth, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Route("/tables", func(r chi.Router) {
				r.Get("/", controllers.AdminTableList(deps.Tables, logg))
				r.Post("/", controllers.AdminTableCreate(deps.Tables, logg))
				r.Post("/{tableId}/deactivate", controllers.AdminTableDeactivate(deps.Tables, logg))
				r.Post("/{tableId}/rotate-token", controllers.AdminTableRotateToken(deps.Tables, logg))
			})

			r.Post("/sessions/{sessionId}/reset", controllers.AdminResetGuestSession(deps.Auth, logg))
		})
	})

	return r
}
