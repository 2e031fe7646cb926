package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/frahmantamala/crypto-settlement/internal"
	"github.com/frahmantamala/crypto-settlement/internal/chainverifier"
	"github.com/frahmantamala/crypto-settlement/internal/core/events"
	"github.com/frahmantamala/crypto-settlement/internal/ledger"
	ledgerpg "github.com/frahmantamala/crypto-settlement/internal/ledger/postgres"
	"github.com/frahmantamala/crypto-settlement/internal/payment"
	paymentpg "github.com/frahmantamala/crypto-settlement/internal/payment/postgres"
	"github.com/frahmantamala/crypto-settlement/internal/transport/rest"
	"github.com/frahmantamala/crypto-settlement/pkg/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

// Engine bundles the wired settlement services shared by the server and the
// sweep worker.
type Engine struct {
	Config         *internal.Config
	DB             *sqlx.DB
	PaymentService *payment.Service
	LedgerService  *ledger.Service
	Logger         *slog.Logger
}

func startHTTPServer() {
	engine, err := buildEngine()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}

	router := chi.NewRouter()
	paymentHandler := payment.NewHandler(engine.PaymentService, engine.Logger)
	ledgerHandler := ledger.NewHandler(engine.LedgerService, engine.Logger)
	rest.RegisterAllRoutes(router, engine.DB.DB, paymentHandler, ledgerHandler, engine.Config.Security.TokenSecret, engine.Logger)

	addr := fmt.Sprintf(":%d", engine.Config.Server.Port)
	slog.Info("Starting HTTP server", "address", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  engine.Config.Server.ReadTimeout,
		WriteTimeout: engine.Config.Server.WriteTimeout,
		IdleTimeout:  engine.Config.Server.IdleTimeout,
	}

	// Signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		slog.Info("Received signal, shutting down...", "signal", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}
		if err := engine.DB.Close(); err != nil {
			slog.Error("Database close error", "error", err)
		}
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}

	slog.Info("Server stopped")
}

func buildEngine() (*Engine, error) {
	config, err := loadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.Init(os.Getenv("APP_ENV"))
	log := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: db.DB}), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open gorm connection: %w", err)
	}

	converter, err := payment.NewConverter(config.Settlement.TokenDecimals)
	if err != nil {
		return nil, fmt.Errorf("failed to build converter: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	verifier, err := chainverifier.NewEVMVerifier(ctx, config.Settlement.RPCURL, config.Settlement.ChainID, log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect chain verifier: %w", err)
	}

	eventBus := events.NewEventBus(log)
	payment.NewEventHandler(payment.NewLogNotifier(log), log).RegisterEventHandlers(eventBus)

	paymentService := payment.NewService(
		paymentpg.NewAttemptRepository(gormDB),
		verifier,
		eventBus,
		converter,
		payment.Config{
			MinAmountMinorUnits: config.Settlement.MinAmountMinorUnits,
			MaxAmountMinorUnits: config.Settlement.MaxAmountMinorUnits,
			IntentTTL:           config.Settlement.IntentTTL,
			VerifyTimeout:       config.Settlement.VerifyTimeout,
			VerifyThrottle:      config.Settlement.VerifyThrottle,
			MinConfirmations:    config.Settlement.MinConfirmations,
			ChainID:             config.Settlement.ChainID,
			TokenAddress:        config.Settlement.TokenAddress,
			DepositAddress:      config.Settlement.DepositAddress,
		},
		log,
	)

	ledgerService := ledger.NewService(ledgerpg.NewLedgerRepository(gormDB), log)

	return &Engine{
		Config:         config,
		DB:             db,
		PaymentService: paymentService,
		LedgerService:  ledgerService,
		Logger:         log,
	}, nil
}

// initDB initializes the database connection
func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// verify connection; close underlying *sql.DB on failure
	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}
