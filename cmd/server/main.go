package main

import (
	"log"
	"net/http"
	"time"

	"github.com/silverbill/payu/internal/api"
	"github.com/silverbill/payu/internal/config"
	"github.com/silverbill/payu/internal/gateway"
	"github.com/silverbill/payu/internal/processor"
	"github.com/silverbill/payu/internal/reconciler"
	"github.com/silverbill/payu/internal/repository"
	"github.com/silverbill/payu/internal/secrets"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Initializing database at %s", cfg.DBPath)
	db, err := repository.InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init DB: %v", err)
	}
	defer db.Close()

	// Create repositories.
	txnRepo := repository.NewTransactionRepo(db)
	pmRepo := repository.NewPaymentMethodRepo(db)
	custRepo := repository.NewCustomerRepo(db)

	cipher, err := secrets.NewAESCipher(cfg.CipherKey)
	if err != nil {
		log.Fatalf("Failed to init cipher: %v", err)
	}

	// The gateway call has no internal deadline management beyond this
	// client timeout; charge requests are never retried.
	client := &http.Client{Timeout: 30 * time.Second}

	var protocol gateway.Protocol
	switch cfg.Protocol {
	case "alu":
		protocol = gateway.NewALUProtocol(cfg.Merchant, cfg.Secret, cfg.ALUEndpoint, client)
	default:
		protocol = gateway.NewTokenProtocol(cfg.Merchant, cfg.Secret, cfg.TokenEndpoint, client)
	}

	// Create services.
	rec := reconciler.New(txnRepo)
	proc := processor.New(txnRepo, pmRepo, custRepo, cipher, protocol, rec,
		cfg.BaseURL, cfg.StrictPrivacy)

	// Create router.
	router := api.NewRouter(txnRepo, pmRepo, proc, rec, cipher, cfg.Secret, cfg.Protocol)

	log.Printf("PayU Payment Processor (%s protocol)", cfg.Protocol)
	log.Printf("Listening on http://localhost:%s", cfg.Port)
	log.Printf("")
	log.Printf("Endpoints:")
	log.Printf("  POST   /ipn/payment")
	log.Printf("  POST   /ipn/token")
	log.Printf("  GET    /pay/{id}/form")
	log.Printf("  GET    /pay/{id}/complete")
	log.Printf("  POST   /pay/{id}/3ds")
	log.Printf("  GET    /api/v1/transactions")
	log.Printf("  GET    /api/v1/transactions/{id}")

	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
