/**
 * @description
 * This is the main entry point for the paga-gateway. It is responsible for
 * initializing all components of the service, including configuration, database
 * connection, external API clients, message brokers, repositories, the core
 * application service, and the HTTP server. It wires everything together and
 * starts the service.
 *
 * @dependencies
 * - log, net/http: Standard Go libraries for logging and HTTP server functionality.
 * - github.com/go-chi/chi/v5, github.com/go-chi/cors: For HTTP routing.
 * - github.com/jackc/pgx/v5: PostgreSQL driver.
 * - internal/api, internal/app, internal/config, internal/metrics, internal/store: Internal packages.
 * - pkg/identityclient, pkg/pagaclient, pkg/rabbitmq: External service clients.
 */

package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kobowallet/paga-gateway/internal/api"
	"github.com/kobowallet/paga-gateway/internal/app"
	"github.com/kobowallet/paga-gateway/internal/config"
	"github.com/kobowallet/paga-gateway/internal/metrics"
	"github.com/kobowallet/paga-gateway/internal/store"
	"github.com/kobowallet/paga-gateway/pkg/identityclient"
	"github.com/kobowallet/paga-gateway/pkg/pagaclient"
	"github.com/kobowallet/paga-gateway/pkg/rabbitmq"
)

func main() {
	// Load application configuration from environment variables.
	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"config load failed\" err=%v", err)
	}

	// A gateway without a hash key would fail every signed provider call, so
	// refuse to start instead of failing at request time.
	if strings.TrimSpace(cfg.PagaHashKey) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"paga hash key must be configured\" env=PAGA_API_KEY_HMAC")
	}
	if strings.TrimSpace(cfg.PagaPrincipal) == "" || strings.TrimSpace(cfg.PagaCredential) == "" {
		log.Fatalf("level=fatal component=bootstrap msg=\"paga principal and credential must be configured\" env=PAGA_PRINCIPAL_PUBLIC_KEY,PAGA_CREDENTIAL")
	}

	log.Printf("level=info component=bootstrap msg=\"starting paga-gateway\" port=%s", cfg.ServerPort)

	// Establish a connection pool to the PostgreSQL database.
	poolConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database url parse failed\" err=%v", err)
	}

	poolConfig.MaxConns = 50
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = 30 * time.Minute
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	// Disable prepared statement caching to prevent conflicts behind poolers
	poolConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		log.Fatalf("level=fatal component=bootstrap msg=\"database connection failed\" err=%v", err)
	}
	defer dbpool.Close()
	log.Println("level=info component=bootstrap msg=\"database connected\"")

	// Initialize the RabbitMQ producer to publish payment outcome events.
	// The broker is optional; fall back to a no-op publisher when unreachable.
	var producer rabbitmq.Publisher
	if strings.TrimSpace(cfg.RabbitMQURL) == "" {
		log.Println("level=warn component=bootstrap msg=\"rabbitmq url missing; payment events disabled\" env=RABBITMQ_URL")
		producer = &rabbitmq.EventProducerFallback{}
	} else if eventProducer, prodErr := rabbitmq.NewEventProducer(cfg.RabbitMQURL); prodErr != nil {
		log.Printf("level=warn component=bootstrap msg=\"rabbitmq producer unavailable; using fallback\" err=%v", prodErr)
		producer = &rabbitmq.EventProducerFallback{}
	} else {
		defer eventProducer.Close()
		log.Println("level=info component=bootstrap msg=\"rabbitmq producer connected\"")
		producer = eventProducer
	}

	// Initialize the client for the Paga business API.
	pagaClient := pagaclient.NewClient(cfg.PagaBaseURL, cfg.PagaPrincipal, cfg.PagaCredential, cfg.PagaHashKey)

	// Initialize the client for the identity provider's account endpoints.
	identityClient := identityclient.NewClient(cfg.IdentityAPIURL, cfg.IdentityAPIKey)

	// Initialize the data access layer (repository).
	repository := store.NewPostgresRepository(dbpool)

	// Initialize the core application service with its dependencies.
	paymentService := app.NewService(repository, pagaClient, producer)

	// Initialize the API handlers.
	paymentHandlers := api.NewPaymentHandlers(paymentService)
	userHandlers := api.NewUserHandlers(paymentService, identityClient)

	// Register Prometheus collectors.
	metrics.Init()

	// Set up the HTTP router and define the API routes.
	router := chi.NewRouter()
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	router.Use(metrics.Middleware)

	router.Mount("/api", api.PaymentRoutes(paymentHandlers, cfg.IdentityJWKSURL))
	router.Mount("/user", api.UserRoutes(userHandlers))
	router.Handle("/metrics", metrics.Handler())
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Start the HTTP server.
	serverAddr := fmt.Sprintf(":%s", cfg.ServerPort)
	log.Printf("level=info component=http msg=\"server listening\" addr=%s", serverAddr)

	server := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("level=fatal component=http msg=\"server stopped unexpectedly\" err=%v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	log.Println("level=info component=http msg=\"shutdown started\"")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("level=error component=http msg=\"shutdown failed\" err=%v", err)
	}

	log.Println("level=info component=http msg=\"shutdown complete\"")
}
