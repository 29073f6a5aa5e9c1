package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"mpesa-gateway-go/internal/models"
)

func testDatabaseConfig(t *testing.T) models.DatabaseConfig {
	return models.DatabaseConfig{
		Backend:         "sqlite",
		Path:            filepath.Join(t.TempDir(), "ledger.db"),
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Minute,
		ConnMaxIdleTime: 30 * time.Second,
		PingTimeout:     5 * time.Second,
	}
}

func setupTestService(t *testing.T) *Service {
	t.Helper()

	service, err := NewService(context.Background(), testDatabaseConfig(t))
	if err != nil {
		t.Fatalf("Failed to create database service: %v", err)
	}
	t.Cleanup(service.Close)
	return service
}

func TestNewService_InvalidConfig(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*models.DatabaseConfig)
	}{
		{"empty path", func(c *models.DatabaseConfig) { c.Path = "" }},
		{"zero max open conns", func(c *models.DatabaseConfig) { c.MaxOpenConns = 0 }},
		{"negative max idle conns", func(c *models.DatabaseConfig) { c.MaxIdleConns = -1 }},
		{"zero ping timeout", func(c *models.DatabaseConfig) { c.PingTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testDatabaseConfig(t)
			tt.mutate(&cfg)
			if _, err := NewService(ctx, cfg); err == nil {
				t.Fatalf("Expected error for %s", tt.name)
			}
		})
	}
}

func TestNewService_SchemaIsIdempotent(t *testing.T) {
	ctx := context.Background()
	cfg := testDatabaseConfig(t)

	first, err := NewService(ctx, cfg)
	if err != nil {
		t.Fatalf("First NewService failed: %v", err)
	}
	if err := first.UpsertDepositCorrelation(ctx, "254712345678", "m-1"); err != nil {
		t.Fatalf("UpsertDepositCorrelation failed: %v", err)
	}
	first.Close()

	second, err := NewService(ctx, cfg)
	if err != nil {
		t.Fatalf("Reopening database failed: %v", err)
	}
	defer second.Close()

	user, err := second.GetUser(ctx, "254712345678")
	if err != nil {
		t.Fatalf("GetUser after reopen failed: %v", err)
	}
	if user.MerchantRequestId != "m-1" {
		t.Errorf("Expected merchant request id m-1, got %s", user.MerchantRequestId)
	}
}
