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

func (s *Service) CreateWithdrawal(ctx context.Context, params store.CreateWithdrawalParams) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, queryInsertWithdrawal,
		params.OriginatorConversationId, params.ConversationId, params.Phone, params.Amount.String(), now, now)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: withdrawal %s", store.ErrDuplicateTransaction, params.OriginatorConversationId)
		}
		return fmt.Errorf("unable to insert withdrawal: %w", err)
	}

	zap.L().Info("Withdrawal recorded",
		zap.String("originator_conversation_id", params.OriginatorConversationId),
		zap.String("phone", params.Phone),
		zap.String("amount", params.Amount.String()))
	return nil
}

func (s *Service) GetWithdrawal(ctx context.Context, originatorConversationId string) (*models.Withdrawal, error) {
	var withdrawal models.Withdrawal
	var amountStr string
	err := s.db.QueryRowContext(ctx, queryGetWithdrawal, originatorConversationId).Scan(
		&withdrawal.OriginatorConversationId, &withdrawal.ConversationId, &withdrawal.Phone, &amountStr,
		&withdrawal.Status, &withdrawal.ResultCode, &withdrawal.ResultDesc, &withdrawal.TransactionId,
		&withdrawal.ReceiptNumber, &withdrawal.CreatedAt, &withdrawal.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: withdrawal %s", store.ErrTransactionNotFound, originatorConversationId)
		}
		return nil, fmt.Errorf("unable to query withdrawal: %w", err)
	}

	withdrawal.Amount, err = decimal.NewFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse withdrawal amount '%s': %w", amountStr, err)
	}
	return &withdrawal, nil
}

// SettleWithdrawal moves a pending withdrawal to completed, failed or timeout
func (s *Service) SettleWithdrawal(ctx context.Context, params store.SettleWithdrawalParams) (bool, error) {
	result, err := s.db.ExecContext(ctx, querySettleWithdrawal,
		params.Status, params.ResultCode, params.ResultDesc, params.TransactionId, params.ReceiptNumber,
		time.Now().UTC(), params.OriginatorConversationId)
	if err != nil {
		return false, fmt.Errorf("unable to settle withdrawal: %w", err)
	}

	return s.settled(ctx, result, queryWithdrawalExists, params.OriginatorConversationId)
}
