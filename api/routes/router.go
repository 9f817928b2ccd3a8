package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sklepio/storefront-backend/api/controllers"
	"github.com/sklepio/storefront-backend/api/middleware"
	checkoutsvc "github.com/sklepio/storefront-backend/internal/checkout"
	"github.com/sklepio/storefront-backend/pkg/config"
	"github.com/sklepio/storefront-backend/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	checkoutService checkoutsvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":    dbP,
			"redis": redisP,
		}))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/checkout", func(r chi.Router) {
		r.Use(middleware.Session(cfg.JWT, logg))

		r.Post("/start", controllers.CheckoutStart(checkoutService, logg))
		r.Get("/", controllers.CheckoutState(checkoutService, logg))
		r.Post("/auth-choice", controllers.CheckoutAuthChoice(checkoutService, logg))
		r.Post("/address", controllers.CheckoutAddress(checkoutService, logg))
		r.Get("/addresses", controllers.CheckoutSavedAddresses(checkoutService, logg))
		r.Post("/back", controllers.CheckoutBack(checkoutService, logg))
		r.Post("/edit", controllers.CheckoutEdit(checkoutService, logg))

		r.Route("/shipping", func(r chi.Router) {
			r.Post("/refresh", controllers.CheckoutRefreshShipping(checkoutService, logg))
			r.Post("/method", controllers.CheckoutSelectMethod(checkoutService, logg))
			r.Post("/locker", controllers.CheckoutSelectLocker(checkoutService, logg))
			r.Post("/address-override", controllers.CheckoutSetOverrideAddress(checkoutService, logg))
			r.Post("/address-override/toggle", controllers.CheckoutToggleOverride(checkoutService, logg))
			r.Post("/submit", controllers.CheckoutSubmitShipping(checkoutService, logg))
		})

		r.Route("/payment", func(r chi.Router) {
			r.Post("/", controllers.CheckoutSubmitPayment(checkoutService, logg))
			r.Post("/cancelled", controllers.CheckoutPaymentCancelled(checkoutService, logg))
		})

		r.Route("/coupon", func(r chi.Router) {
			r.Post("/", controllers.CheckoutApplyCoupon(checkoutService, logg))
			r.Delete("/", controllers.CheckoutRemoveCoupon(checkoutService, logg))
		})

		r.Post("/submit", controllers.CheckoutSubmit(checkoutService, logg))
	})

	return r
}
