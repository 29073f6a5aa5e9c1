package store

import (
	"context"
	"errors"

	"mpesa-gateway-go/internal/models"

	"github.com/shopspring/decimal"
)

// Sentinel errors shared across all backend implementations.
var (
	ErrDuplicateTransaction   = errors.New("duplicate transaction")
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrUserNotFound           = errors.New("user not found")
	ErrTransactionNotFound    = errors.New("transaction not found")
)

// CreateDepositParams records a deposit the provider has acknowledged.
type CreateDepositParams struct {
	MerchantRequestId string
	CheckoutRequestId string
	Phone             string
	Amount            decimal.Decimal
}

// SettleDepositParams carries the outcome of an STK callback.
type SettleDepositParams struct {
	MerchantRequestId string
	Status            string // completed or failed
	ResultCode        int
	ResultDesc        string
	ReceiptNumber     string
	TransactionDate   string
}

// CreateWithdrawalParams records a B2C request the provider has accepted.
type CreateWithdrawalParams struct {
	OriginatorConversationId string
	ConversationId           string
	Phone                    string
	Amount                   decimal.Decimal
}

// SettleWithdrawalParams carries the outcome of a B2C result or timeout.
type SettleWithdrawalParams struct {
	OriginatorConversationId string
	Status                   string // completed, failed or timeout
	ResultCode               int
	ResultDesc               string
	TransactionId            string
	ReceiptNumber            string
}

// LedgerStore defines the contract that every backend (SQLite, MongoDB) must satisfy.
type LedgerStore interface {
	// --- Users ---
	GetUser(ctx context.Context, phone string) (*models.User, error)
	GetUsers(ctx context.Context) ([]models.User, error)
	// UpsertDepositCorrelation creates the user at a zero balance if needed
	UpsertDepositCorrelation(ctx context.Context, phone, merchantRequestId string) error
	SetWithdrawalCorrelation(ctx context.Context, phone, originatorConversationId string) error
	FindUserByMerchantRequestID(ctx context.Context, merchantRequestId string) (*models.User, error)
	FindUserByOriginatorConversationID(ctx context.Context, originatorConversationId string) (*models.User, error)

	// --- Deposits ---
	CreateDeposit(ctx context.Context, params CreateDepositParams) error
	GetDeposit(ctx context.Context, merchantRequestId string) (*models.Deposit, error)
	// SettleDeposit returns false when the deposit had already left pending
	SettleDeposit(ctx context.Context, params SettleDepositParams) (bool, error)

	// --- Withdrawals ---
	CreateWithdrawal(ctx context.Context, params CreateWithdrawalParams) error
	GetWithdrawal(ctx context.Context, originatorConversationId string) (*models.Withdrawal, error)
	SettleWithdrawal(ctx context.Context, params SettleWithdrawalParams) (bool, error)

	// --- Balances ---
	// AdjustBalance applies delta atomically and returns the new balance. A
	// reference that was already applied yields ErrDuplicateTransaction.
	AdjustBalance(ctx context.Context, phone string, delta decimal.Decimal, kind, reference string) (decimal.Decimal, error)
	GetBalanceHistory(ctx context.Context, phone string, limit, offset int) ([]models.BalanceEntry, error)
	ReconcileUserBalance(ctx context.Context, phone string) error

	// --- Offline payments ---
	RecordOfflinePayment(ctx context.Context, transId string, payload []byte) (*models.OfflinePayment, error)

	// --- Lifecycle ---
	Close()
}
