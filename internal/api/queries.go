package api

import (
	"context"
	"errors"

	"mpesa-gateway-go/internal/models"

	"go.uber.org/zap"
)

// RequestReversal asks the provider to reverse a completed transaction and
// returns the provider's acknowledgement as received
func (s *GatewayService) RequestReversal(ctx context.Context, req models.ReversalRequest) (map[string]any, error) {
	amount, err := req.Amount.Decimal()
	if req.TransactionID == "" || errors.Is(err, models.ErrAmountMissing) {
		return nil, badRequest(msgReversalFields)
	}
	if err != nil {
		return nil, badRequest(msgReversalAmount)
	}

	resp, err := s.provider.Reversal(ctx, req.TransactionID, amount)
	if err != nil {
		zap.L().Error("Reversal request failed",
			zap.String("transaction_id", req.TransactionID),
			zap.Error(err))
		return nil, internalError(msgInternal, err)
	}
	if !responseCodeIsZero(resp) {
		zap.L().Warn("Reversal rejected by provider",
			zap.String("transaction_id", req.TransactionID),
			zap.Any("response", resp))
		return nil, badRequest(msgServiceRequestFailed)
	}

	zap.L().Info("Reversal requested", zap.String("transaction_id", req.TransactionID))
	return resp, nil
}

// QueryTransactionStatus asks the provider for a transaction's status; the
// outcome is posted later to the result webhook
func (s *GatewayService) QueryTransactionStatus(ctx context.Context, req models.TransactionStatusRequest) (map[string]any, error) {
	if req.TransactionID == "" {
		return nil, badRequest(msgTransactionIdRequired)
	}

	resp, err := s.provider.TransactionStatus(ctx, req.TransactionID)
	if err != nil {
		zap.L().Error("Transaction status request failed",
			zap.String("transaction_id", req.TransactionID),
			zap.Error(err))
		return nil, internalError(msgInternal, err)
	}
	if !responseCodeIsZero(resp) {
		zap.L().Warn("Transaction status rejected by provider",
			zap.String("transaction_id", req.TransactionID),
			zap.Any("response", resp))
		return nil, badRequest(msgServiceRequestFailed)
	}

	zap.L().Info("Transaction status requested", zap.String("transaction_id", req.TransactionID))
	return resp, nil
}

// responseCodeIsZero accepts ResponseCode as either the number 0 or the string "0"
func responseCodeIsZero(resp map[string]any) bool {
	switch code := resp["ResponseCode"].(type) {
	case string:
		return code == "0"
	case float64:
		return code == 0
	default:
		return false
	}
}
