package app

import (
	"context"
	"fmt"
	"syscall"

	"golang.org/x/term"

	"github.com/jparks/lexledger/internal/config"
	"github.com/jparks/lexledger/internal/crypto"
	"github.com/jparks/lexledger/internal/db"
	"github.com/jparks/lexledger/internal/domain"
	"github.com/jparks/lexledger/internal/logging"
	"github.com/jparks/lexledger/internal/repository"
	"github.com/jparks/lexledger/internal/service"
)

// App is the dependency injection container for all application components
type App struct {
	Config *config.Config
	DB     *db.DB
	Logger logging.Logger

	// Repositories
	ClientRepo  repository.ClientRepository
	MatterRepo  repository.MatterRepository
	RateRepo    repository.RateRepository
	PolicyRepo  repository.PolicyRepository
	EntryRepo   repository.TimeEntryRepository
	InvoiceRepo repository.InvoiceRepository
	TimerRepo   repository.TimerRepository

	// Services
	RateService    service.RateService
	EntryService   service.EntryService
	TimerService   service.TimerService
	InvoiceService service.InvoiceService
	ReportService  service.ReportService
}

// New creates a new App instance, initializing all dependencies:
// config, encryption key, database, migrations, repositories, services.
func New(ctx context.Context) (*App, error) {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return NewWithConfig(ctx, cfg)
}

// NewWithConfig creates an App with a provided config (useful for testing)
func NewWithConfig(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	logger := logging.NewLogger(cfg.Logging.Path, cfg.Logging.Level)

	firmPolicy, err := cfg.RoundingPolicy()
	if err != nil {
		return nil, err
	}

	// Get keyring for secure password storage
	keyring := crypto.NewKeyring()

	password, err := keyring.GetKey()
	if err != nil {
		// No key exists, prompt user to set one
		fmt.Println("Setting up database encryption for the first time...")
		password, err = promptForPassword()
		if err != nil {
			return nil, fmt.Errorf("failed to set password: %w", err)
		}

		if err := keyring.SetKey(password); err != nil {
			return nil, fmt.Errorf("failed to store encryption key: %w", err)
		}
	}

	database, err := db.Open(cfg.Database.Path, password)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.RunMigrations(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Create repositories
	clientRepo := repository.NewClientRepo(database)
	matterRepo := repository.NewMatterRepo(database)
	rateRepo := repository.NewRateRepo(database)
	policyRepo := repository.NewPolicyRepo(database)
	entryRepo := repository.NewEntryRepo(database)
	invoiceRepo := repository.NewInvoiceRepo(database)
	timerRepo := repository.NewTimerRepo(database)

	// Create services with their dependencies
	rateService := service.NewRateService(rateRepo, matterRepo, logger)
	entryService := service.NewEntryService(entryRepo, matterRepo, policyRepo, rateService, firmPolicy, logger)
	timerService := service.NewTimerService(timerRepo, clientRepo, matterRepo, rateService, entryService, service.NewRealClock(), logger)
	invoiceService := service.NewInvoiceService(invoiceRepo, entryRepo, clientRepo, logger)
	reportService := service.NewReportService(entryRepo, invoiceRepo)

	return &App{
		Config:         cfg,
		DB:             database,
		Logger:         logger,
		ClientRepo:     clientRepo,
		MatterRepo:     matterRepo,
		RateRepo:       rateRepo,
		PolicyRepo:     policyRepo,
		EntryRepo:      entryRepo,
		InvoiceRepo:    invoiceRepo,
		TimerRepo:      timerRepo,
		RateService:    rateService,
		EntryService:   entryService,
		TimerService:   timerService,
		InvoiceService: invoiceService,
		ReportService:  reportService,
	}, nil
}

// Close cleanly shuts down the application
func (a *App) Close() error {
	if a.DB != nil {
		return a.DB.Close()
	}
	return nil
}

// IdleThreshold returns the configured inactivity threshold
func (a *App) IdleThreshold() int {
	return a.Config.Billing.IdleThresholdMin
}

// RecoverTimer reports a timer left over from a previous run, if any
func (a *App) RecoverTimer(ctx context.Context) (*domain.ActiveTimer, error) {
	return a.TimerService.RecoverFromCrash(ctx)
}

// SaveConfig saves the current configuration to disk
func (a *App) SaveConfig() error {
	return a.Config.Save(config.DefaultConfigPath())
}

// promptForPassword prompts user for a new database password (first run)
func promptForPassword() (string, error) {
	fmt.Println()
	fmt.Println("Your billing data will be encrypted with a password.")
	fmt.Println("This password will be stored securely in your system keyring.")
	fmt.Println()
	fmt.Print("Enter a password for database encryption: ")

	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}

	if len(password) == 0 {
		return "", fmt.Errorf("password cannot be empty")
	}

	fmt.Print("Confirm password: ")
	confirm, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read confirmation: %w", err)
	}

	if string(password) != string(confirm) {
		return "", fmt.Errorf("passwords do not match")
	}

	fmt.Println()
	fmt.Println("✓ Database encryption configured successfully")
	fmt.Println()

	return string(password), nil
}
