package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"mpesa-gateway-go/internal/models"
	"mpesa-gateway-go/internal/store"
)

// ProcessTransactionParams contains the parameters for one balance adjustment
type ProcessTransactionParams struct {
	Phone     string
	Kind      string
	Amount    decimal.Decimal // signed; negative debits the user
	Reference string
}

// ProcessTransaction atomically updates the user's balance and records the entry
func (s *SubledgerService) ProcessTransaction(ctx context.Context, params ProcessTransactionParams) (*models.BalanceEntry, error) {

	zap.L().Info("Processing balance adjustment",
		zap.String("phone", params.Phone),
		zap.String("kind", params.Kind),
		zap.String("amount", params.Amount.String()),
		zap.String("reference", params.Reference))

	if params.Reference == "" {
		return nil, fmt.Errorf("balance adjustment requires a reference")
	}

	// Check for a previously applied reference
	var existingId string
	err := s.db.QueryRowContext(ctx, queryCheckDuplicateEntry, params.Reference).Scan(&existingId)
	if err == nil {
		zap.L().Warn("Duplicate balance reference detected, skipping",
			zap.String("reference", params.Reference),
			zap.String("existing_entry_id", existingId))
		return nil, fmt.Errorf("%w: reference %s already applied", store.ErrDuplicateTransaction, params.Reference)
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to check for duplicate entry: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var currentBalanceStr string
	var version int64
	err = tx.QueryRowContext(ctx, queryGetUserBalanceForUpdate, params.Phone).Scan(&currentBalanceStr, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("adjust balance for %s: %w", params.Phone, store.ErrUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current balance: %w", err)
	}

	currentBalance, err := decimal.NewFromString(currentBalanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse current balance '%s': %w", currentBalanceStr, err)
	}

	newBalance := currentBalance.Add(params.Amount)

	entry := &models.BalanceEntry{
		Id:            uuid.New().String(),
		Phone:         params.Phone,
		Kind:          params.Kind,
		Amount:        params.Amount,
		BalanceBefore: currentBalance,
		BalanceAfter:  newBalance,
		Reference:     params.Reference,
		CreatedAt:     time.Now().UTC(),
	}

	_, err = tx.ExecContext(ctx, queryInsertBalanceEntry,
		entry.Id, entry.Phone, entry.Kind, entry.Amount.String(),
		entry.BalanceBefore.String(), entry.BalanceAfter.String(), entry.Reference, entry.CreatedAt)
	if err != nil {
		if isConstraintViolation(err) {
			return nil, fmt.Errorf("%w: reference %s already applied", store.ErrDuplicateTransaction, params.Reference)
		}
		return nil, fmt.Errorf("failed to insert balance entry: %w", err)
	}

	// Optimistic locking on the user's version
	result, err := tx.ExecContext(ctx, queryUpdateUserBalance, newBalance.String(), entry.CreatedAt, params.Phone, version)
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return nil, fmt.Errorf("balance update failed - %w", store.ErrConcurrentModification)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	zap.L().Info("Balance adjustment processed successfully",
		zap.String("entry_id", entry.Id),
		zap.String("phone", params.Phone),
		zap.String("old_balance", currentBalance.String()),
		zap.String("new_balance", newBalance.String()))

	return entry, nil
}

// GetBalanceHistory returns paginated balance entries for a user, newest first
func (s *SubledgerService) GetBalanceHistory(ctx context.Context, phone string, limit, offset int) ([]models.BalanceEntry, error) {
	zap.L().Debug("Getting balance history",
		zap.String("phone", phone),
		zap.Int("limit", limit),
		zap.Int("offset", offset))

	rows, err := s.db.QueryContext(ctx, queryGetBalanceHistory, phone, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history: %w", err)
	}
	defer closeRows(rows)

	var entries []models.BalanceEntry
	for rows.Next() {
		var entry models.BalanceEntry
		var amountStr, balanceBeforeStr, balanceAfterStr string
		err := rows.Scan(&entry.Id, &entry.Phone, &entry.Kind,
			&amountStr, &balanceBeforeStr, &balanceAfterStr,
			&entry.Reference, &entry.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan balance entry: %w", err)
		}

		entry.Amount, err = decimal.NewFromString(amountStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse amount '%s': %w", amountStr, err)
		}

		entry.BalanceBefore, err = decimal.NewFromString(balanceBeforeStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance before '%s': %w", balanceBeforeStr, err)
		}

		entry.BalanceAfter, err = decimal.NewFromString(balanceAfterStr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance after '%s': %w", balanceAfterStr, err)
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during balance entry row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating balance entry rows: %w", err)
	}

	return entries, nil
}
