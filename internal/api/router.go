/**
 * @description
 * This file sets up the HTTP routers for the gateway. It defines the API
 * endpoints, associates them with their corresponding handlers, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// PaymentRoutes creates and returns the router for the payment endpoints.
func PaymentRoutes(h *PaymentHandlers, jwksURL string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Provider lookups. These read public catalog data and need no token.
	r.Get("/mobile-operators", h.MobileOperatorsHandler)
	r.Get("/banks", h.BanksHandler)
	r.Get("/merchants", h.MerchantsHandler)
	r.Post("/getdatabundle", h.DataBundlesHandler)
	r.Post("/merchant-services", h.MerchantServicesHandler)
	r.Post("/merchantAccountDetails", h.MerchantAccountDetailsHandler)
	r.Post("/transactionStatus", h.TransactionStatusHandler)

	// Group routes that require authentication.
	r.Group(func(r chi.Router) {
		r.Use(IdentityAuthMiddleware(jwksURL))

		r.Get("/wallet", h.WalletHandler)
		r.Post("/airtime-purchase", h.AirtimePurchaseHandler)
		r.Post("/merchantPayment", h.MerchantPaymentHandler)
	})

	return r
}

// UserRoutes creates and returns the router for the account endpoints.
func UserRoutes(h *UserHandlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Post("/create-users", h.CreateUserHandler)
	r.Post("/auth/login", h.LoginHandler)

	return r
}
