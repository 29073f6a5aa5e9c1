package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mpesa-gateway-go/internal/models"
	"mpesa-gateway-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

func (s *Service) CreateDeposit(ctx context.Context, params store.CreateDepositParams) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, queryInsertDeposit,
		params.MerchantRequestId, params.CheckoutRequestId, params.Phone, params.Amount.String(), now, now)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: deposit %s", store.ErrDuplicateTransaction, params.MerchantRequestId)
		}
		return fmt.Errorf("unable to insert deposit: %w", err)
	}

	zap.L().Info("Deposit recorded",
		zap.String("merchant_request_id", params.MerchantRequestId),
		zap.String("phone", params.Phone),
		zap.String("amount", params.Amount.String()))
	return nil
}

func (s *Service) GetDeposit(ctx context.Context, merchantRequestId string) (*models.Deposit, error) {
	var deposit models.Deposit
	var amountStr string
	err := s.db.QueryRowContext(ctx, queryGetDeposit, merchantRequestId).Scan(
		&deposit.MerchantRequestId, &deposit.CheckoutRequestId, &deposit.Phone, &amountStr,
		&deposit.Status, &deposit.ResultCode, &deposit.ResultDesc, &deposit.ReceiptNumber,
		&deposit.TransactionDate, &deposit.CreatedAt, &deposit.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: deposit %s", store.ErrTransactionNotFound, merchantRequestId)
		}
		return nil, fmt.Errorf("unable to query deposit: %w", err)
	}

	deposit.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse deposit amount '%s': %w", amountStr, err)
	}
	return &deposit, nil
}

// SettleDeposit moves a pending deposit to its final status
func (s *Service) SettleDeposit(ctx context.Context, params store.SettleDepositParams) (bool, error) {
	result, err := s.db.ExecContext(ctx, querySettleDeposit,
		params.Status, params.ResultCode, params.ResultDesc, params.ReceiptNumber, params.TransactionDate,
		time.Now().UTC(), params.MerchantRequestId)
	if err != nil {
		return false, fmt.Errorf("unable to settle deposit: %w", err)
	}

	return s.settled(ctx, result, queryDepositExists, params.MerchantRequestId)
}

// settled distinguishes an already-settled record from a missing one
func (s *Service) settled(ctx context.Context, result sql.Result, existsQuery, key string) (bool, error) {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return true, nil
	}

	var one int
	err = s.db.QueryRowContext(ctx, existsQuery, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("%w: %s", store.ErrTransactionNotFound, key)
	}
	if err != nil {
		return false, fmt.Errorf("unable to check transaction: %w", err)
	}

	zap.L().Warn("Transaction already settled, ignoring", zap.String("key", key))
	return false, nil
}
