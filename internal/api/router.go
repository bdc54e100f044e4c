package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/silverbill/payu/internal/domain"
	"github.com/silverbill/payu/internal/processor"
	"github.com/silverbill/payu/internal/reconciler"
	"github.com/silverbill/payu/internal/repository"
)

// NewRouter creates the Chi router with the gateway notification endpoints,
// the customer-facing payment routes and the operational API mounted.
func NewRouter(
	txnRepo *repository.TransactionRepo,
	pmRepo *repository.PaymentMethodRepo,
	proc *processor.Processor,
	rec *reconciler.Reconciler,
	cipher domain.Cipher,
	merchantSecret string,
	protocolVariant string,
) http.Handler {
	h := &Handlers{
		txnRepo:         txnRepo,
		pmRepo:          pmRepo,
		proc:            proc,
		rec:             rec,
		cipher:          cipher,
		merchantSecret:  merchantSecret,
		protocolVariant: protocolVariant,
	}

	r := chi.NewRouter()

	// Middleware. RealIP resolves the client address the 3DS capture needs.
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Gateway notifications.
	r.Post("/ipn/payment", h.PaymentNotification)
	r.Post("/ipn/token", h.TokenNotification)

	// Customer-facing payment routes.
	r.Route("/pay/{id}", func(r chi.Router) {
		r.Get("/form", h.GetPaymentForm)
		r.Get("/complete", h.CompletePayment)
		r.Post("/3ds", h.CaptureThreeDSData)
	})

	// Operational API.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.SetHeader("Content-Type", "application/json"))
		r.Get("/transactions", h.ListTransactions)
		r.Get("/transactions/{id}", h.GetTransaction)
	})

	return r
}
