package common

import (
	"context"
	"fmt"
	"log"
	"strings"

	"mpesa-gateway-go/internal/config"
	"mpesa-gateway-go/internal/daraja"
	"mpesa-gateway-go/internal/database"
	"mpesa-gateway-go/internal/models"
	"mpesa-gateway-go/internal/mongodb"
	"mpesa-gateway-go/internal/store"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Environment variables can also be set via shell export, docker, etc.
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	Ledger    store.LedgerStore
	Daraja    *daraja.Service
	Allowlist []string
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	if err := validateDarajaConfig(cfg.Daraja); err != nil {
		return nil, err
	}

	allowlist, err := LoadAllowlist(cfg.Security.AllowlistFile)
	if err != nil {
		return nil, err
	}
	zap.L().Info("Loaded webhook allowlist", zap.Int("addresses", len(allowlist)))

	ledger, err := InitializeLedgerOnly(ctx, cfg)
	if err != nil {
		return nil, err
	}

	darajaService, err := daraja.NewService(cfg.Daraja)
	if err != nil {
		ledger.Close()
		return nil, err
	}
	zap.L().Info("Using Daraja API",
		zap.String("base_url", cfg.Daraja.BaseURL),
		zap.String("callback_base_url", cfg.Daraja.CallbackBaseURL),
		zap.String("shortcode", cfg.Daraja.ShortCode))

	return &Services{
		Ledger:    ledger,
		Daraja:    darajaService,
		Allowlist: allowlist,
	}, nil
}

// InitializeLedgerOnly opens just the configured ledger backend, without
// provider credentials. Useful for read-only operations like querying balances.
func InitializeLedgerOnly(ctx context.Context, cfg *models.Config) (store.LedgerStore, error) {
	switch cfg.Database.Backend {
	case config.BackendMongoDB:
		ledger, err := mongodb.NewService(ctx, cfg.Mongo)
		if err != nil {
			return nil, err
		}
		return ledger, nil
	case config.BackendSQLite, "":
		ledger, err := database.NewService(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		return ledger, nil
	default:
		return nil, fmt.Errorf("unsupported ledger backend %q", cfg.Database.Backend)
	}
}

func (cs *Services) Close() {
	if cs.Ledger != nil {
		cs.Ledger.Close()
	}
}

func validateDarajaConfig(cfg models.DarajaConfig) error {
	required := map[string]string{
		"CONSUMER_KEY":    cfg.ConsumerKey,
		"CONSUMER_SECRET": cfg.ConsumerSecret,
		"PASSKEY":         cfg.Passkey,
		"SHORTCODE":       cfg.ShortCode,
		"API_BASE_URL":    cfg.CallbackBaseURL,
	}

	var missing []string
	for _, key := range []string{"CONSUMER_KEY", "CONSUMER_SECRET", "PASSKEY", "SHORTCODE", "API_BASE_URL"} {
		if required[key] == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required Daraja configuration: %s", strings.Join(missing, ", "))
	}

	// Disbursement settings only matter for B2C, reversal and status calls
	if cfg.B2CShortCode == "" || cfg.InitiatorName == "" || cfg.InitiatorPassword == "" || cfg.SecurityCertPath == "" {
		zap.L().Warn("B2C settings incomplete; withdrawals, reversals and status queries will fail",
			zap.Bool("b2c_shortcode", cfg.B2CShortCode != ""),
			zap.Bool("initiator_name", cfg.InitiatorName != ""),
			zap.Bool("initiator_password", cfg.InitiatorPassword != ""),
			zap.Bool("security_cert_path", cfg.SecurityCertPath != ""))
	}
	return nil
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
