/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */
package api

import (
	"context"
	"errors"
	"fmt"

	"mpesa-gateway-go/internal/common"
	"mpesa-gateway-go/internal/models"
	"mpesa-gateway-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var minimumWithdrawal = decimal.NewFromInt(10)

// InitiateWithdrawal checks the user's balance and sends a B2C disbursement.
// The balance is only debited once the provider posts a successful result, so
// two concurrent requests can both pass the balance check.
func (s *GatewayService) InitiateWithdrawal(ctx context.Context, req models.WithdrawalRequest) (*models.ProviderAck, error) {
	requested, err := req.Amount.Decimal()
	if req.PhoneNumber == "" || errors.Is(err, models.ErrAmountMissing) {
		return nil, badRequest(msgFieldsRequired)
	}
	amount := requested.Truncate(0)
	if err != nil || amount.LessThan(minimumWithdrawal) {
		return nil, badRequest(msgMinimumWithdrawal)
	}

	phone, err := common.NormalizePhone(req.PhoneNumber)
	if err != nil {
		return nil, badRequest(err.Error())
	}

	user, err := s.ledger.GetUser(ctx, phone)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, notFound(msgUserNotFound)
		}
		zap.L().Error("User lookup failed for withdrawal", zap.String("phone", phone), zap.Error(err))
		return nil, internalError(msgInternal, err)
	}

	if amount.GreaterThan(user.Balance) {
		zap.L().Info("Withdrawal exceeds balance",
			zap.String("phone", phone),
			zap.String("amount", amount.String()),
			zap.String("balance", user.Balance.String()))
		return nil, badRequest(msgInsufficientBalance)
	}

	originatorId := s.newId()
	zap.L().Info("Initiating B2C payment",
		zap.String("phone", phone),
		zap.String("amount", amount.String()),
		zap.String("originator_conversation_id", originatorId))

	resp, err := s.provider.B2CPayment(ctx, phone, amount, originatorId)
	if err != nil {
		zap.L().Error("B2C payment failed",
			zap.String("phone", phone),
			zap.String("originator_conversation_id", originatorId),
			zap.Error(err))
		return nil, internalError(msgInternal, err)
	}

	if !resp.ResponseCode.IsZeroString() {
		zap.L().Warn("B2C payment rejected by provider",
			zap.String("phone", phone),
			zap.String("response_code", resp.ResponseCode.String()),
			zap.String("response_description", resp.ResponseDescription))
		return nil, badRequest(msgWithdrawalFailed)
	}

	// The provider echoes our ID; results are correlated by whatever it sent back
	if resp.OriginatorConversationID != "" {
		originatorId = resp.OriginatorConversationID
	}

	err = s.ledger.CreateWithdrawal(ctx, store.CreateWithdrawalParams{
		OriginatorConversationId: originatorId,
		ConversationId:           resp.ConversationID,
		Phone:                    phone,
		Amount:                   amount,
	})
	if err != nil {
		zap.L().Error("Failed to record pending withdrawal",
			zap.String("originator_conversation_id", originatorId),
			zap.Error(err))
		return nil, internalError(msgInternal, err)
	}

	if err := s.ledger.SetWithdrawalCorrelation(ctx, phone, originatorId); err != nil {
		zap.L().Error("Failed to record withdrawal correlation",
			zap.String("phone", phone),
			zap.String("originator_conversation_id", originatorId),
			zap.Error(err))
		return nil, internalError(msgInternal, err)
	}

	zap.L().Info("Withdrawal pending",
		zap.String("phone", phone),
		zap.String("originator_conversation_id", originatorId),
		zap.String("conversation_id", resp.ConversationID))

	return &models.ProviderAck{
		ResponseCode:        resp.ResponseCode.String(),
		ResponseDescription: resp.ResponseDescription,
	}, nil
}

// HandleWithdrawalResult settles a B2C result and debits the user on success.
// Reversal and status results arrive here too and are acknowledged when no
// withdrawal matches.
func (s *GatewayService) HandleWithdrawalResult(ctx context.Context, envelope models.ResultEnvelope) models.StatusAck {
	ack := models.StatusAck{Status: "success"}

	result := envelope.Result
	if result == nil {
		zap.L().Error("Result webhook without Result body")
		return ack
	}

	details := models.ExtractWithdrawalDetails(result.Parameters())
	ocid := result.OriginatorConversationID

	params := store.SettleWithdrawalParams{
		OriginatorConversationId: ocid,
		Status:                   models.StatusFailed,
		ResultCode:               resultCode(result.ResultCode),
		ResultDesc:               result.ResultDesc,
		TransactionId:            result.TransactionID,
		ReceiptNumber:            details.ReceiptNumber,
	}

	if !result.ResultCode.IsZero() {
		settled, err := s.ledger.SettleWithdrawal(ctx, params)
		if err != nil {
			s.logUnsettledResult(result, err)
			return ack
		}
		if !settled {
			zap.L().Info("Withdrawal already settled", zap.String("originator_conversation_id", ocid))
			return ack
		}
		zap.L().Info("Withdrawal failed",
			zap.String("originator_conversation_id", ocid),
			zap.String("result_code", result.ResultCode.String()),
			zap.String("result_desc", result.ResultDesc))
		return ack
	}

	withdrawal, err := s.ledger.GetWithdrawal(ctx, ocid)
	if err != nil {
		s.logUnsettledResult(result, err)
		return ack
	}
	if withdrawal.Status != models.StatusPending {
		zap.L().Info("Withdrawal already settled, skipping debit", zap.String("originator_conversation_id", ocid))
		return ack
	}

	amount := details.Amount
	if !details.AmountPresent {
		amount = withdrawal.Amount
	}

	// A withdrawal leaves pending only after its debit has been applied.
	if err := s.debitWithdrawal(ctx, ocid, amount, details.ReceiptNumber); err != nil {
		zap.L().Error("Withdrawal debit failed, left pending",
			zap.String("originator_conversation_id", ocid),
			zap.String("amount", amount.String()),
			zap.String("receipt", details.ReceiptNumber),
			zap.Error(err))
		return ack
	}

	params.Status = models.StatusCompleted
	settled, err := s.ledger.SettleWithdrawal(ctx, params)
	if err != nil {
		zap.L().Error("Withdrawal debited but not marked completed",
			zap.String("originator_conversation_id", ocid),
			zap.String("amount", amount.String()),
			zap.Error(err))
		return ack
	}
	if !settled {
		zap.L().Info("Withdrawal settled concurrently", zap.String("originator_conversation_id", ocid))
		return ack
	}

	zap.L().Info("Withdrawal settled",
		zap.String("originator_conversation_id", ocid),
		zap.String("status", params.Status),
		zap.String("result_desc", result.ResultDesc))
	return ack
}

func (s *GatewayService) logUnsettledResult(result *models.Result, err error) {
	if errors.Is(err, store.ErrTransactionNotFound) {
		zap.L().Info("Result does not match a withdrawal",
			zap.String("originator_conversation_id", result.OriginatorConversationID),
			zap.String("transaction_id", result.TransactionID),
			zap.String("result_code", result.ResultCode.String()),
			zap.String("result_desc", result.ResultDesc))
		return
	}
	zap.L().Error("Failed to settle withdrawal",
		zap.String("originator_conversation_id", result.OriginatorConversationID),
		zap.Error(err))
}

// debitWithdrawal takes a completed payout off the recipient's balance. Only
// retryable failures are returned; an unknown recipient drops the debit.
func (s *GatewayService) debitWithdrawal(ctx context.Context, ocid string, amount decimal.Decimal, receipt string) error {
	user, err := s.ledger.FindUserByOriginatorConversationID(ctx, ocid)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			zap.L().Warn("No user matches withdrawal, debit dropped",
				zap.String("originator_conversation_id", ocid),
				zap.String("amount", amount.String()))
			return nil
		}
		return fmt.Errorf("find recipient: %w", err)
	}

	newBalance, err := s.ledger.AdjustBalance(ctx, user.Phone, amount.Neg(), models.EntryWithdrawal, ocid)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateTransaction) {
			zap.L().Info("Withdrawal already debited", zap.String("originator_conversation_id", ocid))
			return nil
		}
		return fmt.Errorf("debit %s: %w", user.Phone, err)
	}

	zap.L().Info("Withdrawal debited",
		zap.String("phone", user.Phone),
		zap.String("amount", amount.String()),
		zap.String("receipt", receipt),
		zap.String("new_balance", newBalance.String()))
	return nil
}

// HandleWithdrawalTimeout marks the withdrawal timed out without touching the balance
func (s *GatewayService) HandleWithdrawalTimeout(ctx context.Context, envelope models.ResultEnvelope) models.StatusAck {
	ack := models.StatusAck{Status: "Timeout"}

	result := envelope.Result
	if result == nil {
		zap.L().Error("Timeout webhook without Result body")
		return ack
	}

	ocid := result.OriginatorConversationID
	settled, err := s.ledger.SettleWithdrawal(ctx, store.SettleWithdrawalParams{
		OriginatorConversationId: ocid,
		Status:                   models.StatusTimeout,
		ResultCode:               resultCode(result.ResultCode),
		ResultDesc:               result.ResultDesc,
		TransactionId:            result.TransactionID,
	})
	switch {
	case errors.Is(err, store.ErrTransactionNotFound):
		zap.L().Info("Timeout does not match a withdrawal", zap.String("originator_conversation_id", ocid))
	case err != nil:
		zap.L().Error("Failed to mark withdrawal timed out",
			zap.String("originator_conversation_id", ocid),
			zap.Error(err))
	case !settled:
		zap.L().Info("Withdrawal already settled, ignoring timeout", zap.String("originator_conversation_id", ocid))
	default:
		zap.L().Warn("Withdrawal timed out",
			zap.String("originator_conversation_id", ocid),
			zap.String("result_desc", result.ResultDesc))
	}
	return ack
}
