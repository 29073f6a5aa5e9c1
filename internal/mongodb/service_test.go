package mongodb

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"mpesa-gateway-go/internal/models"
	"mpesa-gateway-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService_InvalidConfig(t *testing.T) {
	ctx := context.Background()

	_, err := NewService(ctx, models.MongoConfig{Database: "mpesa", PingTimeout: time.Second})
	assert.Error(t, err)

	_, err = NewService(ctx, models.MongoConfig{URI: "mongodb://localhost:27017", PingTimeout: time.Second})
	assert.Error(t, err)

	_, err = NewService(ctx, models.MongoConfig{URI: "mongodb://localhost:27017", Database: "mpesa"})
	assert.Error(t, err)
}

// setupMongo connects to MONGO_TEST_URI; the test is skipped without one.
func setupMongo(t *testing.T) *Service {
	t.Helper()

	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx := context.Background()
	service, err := NewService(ctx, models.MongoConfig{
		URI:         uri,
		Database:    fmt.Sprintf("mpesa_test_%s", uuid.New().String()[:8]),
		PingTimeout: 5 * time.Second,
	})
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = service.db.Drop(context.Background())
		service.Close()
	})
	return service
}

func TestLedgerLifecycle(t *testing.T) {
	service := setupMongo(t)
	ctx := context.Background()
	phone := "254712345678"

	require.NoError(t, service.UpsertDepositCorrelation(ctx, phone, "m-1"))
	require.NoError(t, service.CreateDeposit(ctx, store.CreateDepositParams{
		MerchantRequestId: "m-1",
		Phone:             phone,
		Amount:            decimal.NewFromInt(100),
	}))

	settled, err := service.SettleDeposit(ctx, store.SettleDepositParams{MerchantRequestId: "m-1", Status: models.StatusCompleted})
	require.NoError(t, err)
	assert.True(t, settled)

	settled, err = service.SettleDeposit(ctx, store.SettleDepositParams{MerchantRequestId: "m-1", Status: models.StatusFailed})
	require.NoError(t, err)
	assert.False(t, settled)

	user, err := service.FindUserByMerchantRequestID(ctx, "m-1")
	require.NoError(t, err)

	balance, err := service.AdjustBalance(ctx, user.Phone, decimal.NewFromInt(100), models.EntryDeposit, "m-1")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(100).Equal(balance))

	_, err = service.AdjustBalance(ctx, user.Phone, decimal.NewFromInt(100), models.EntryDeposit, "m-1")
	assert.True(t, errors.Is(err, store.ErrDuplicateTransaction))

	_, err = service.AdjustBalance(ctx, "254700000000", decimal.NewFromInt(5), models.EntryDeposit, "m-x")
	assert.True(t, errors.Is(err, store.ErrUserNotFound))

	history, err := service.GetBalanceHistory(ctx, phone, 10, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, decimal.NewFromInt(100).Equal(history[0].BalanceAfter))

	assert.NoError(t, service.ReconcileUserBalance(ctx, phone))
}
