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

// InitiateDeposit sends an STK Push to the customer's handset and records the
// pending deposit under the provider's merchant request ID
func (s *GatewayService) InitiateDeposit(ctx context.Context, req models.DepositRequest) (*models.ProviderAck, error) {
	amount, err := req.Amount.Decimal()
	if req.PhoneNumber == "" || errors.Is(err, models.ErrAmountMissing) {
		return nil, badRequest(msgFieldsRequired)
	}
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		return nil, badRequest(msgDepositAmountInvalid)
	}

	phone, err := common.NormalizePhone(req.PhoneNumber)
	if err != nil {
		return nil, badRequest(err.Error())
	}

	zap.L().Info("Initiating STK push",
		zap.String("phone", phone),
		zap.String("amount", amount.String()))

	resp, err := s.provider.STKPush(ctx, phone, amount)
	if err != nil {
		zap.L().Error("STK push failed",
			zap.String("phone", phone),
			zap.Error(err))
		return nil, internalError(msgPaymentFailed, err)
	}

	ack := &models.ProviderAck{
		ResponseCode:        resp.ResponseCode,
		ResponseDescription: resp.ResponseDescription,
	}

	if resp.ResponseCode != "0" {
		zap.L().Warn("STK push not accepted by provider",
			zap.String("phone", phone),
			zap.String("response_code", resp.ResponseCode),
			zap.String("response_description", resp.ResponseDescription))
		return ack, nil
	}
	if resp.MerchantRequestID == "" {
		zap.L().Error("STK push accepted without a merchant request ID", zap.String("phone", phone))
		return nil, internalError(msgPaymentFailed, errors.New("missing merchant request ID"))
	}

	if err := s.ledger.UpsertDepositCorrelation(ctx, phone, resp.MerchantRequestID); err != nil {
		zap.L().Error("Failed to record deposit correlation",
			zap.String("phone", phone),
			zap.String("merchant_request_id", resp.MerchantRequestID),
			zap.Error(err))
		return nil, internalError(msgPaymentFailed, err)
	}

	err = s.ledger.CreateDeposit(ctx, store.CreateDepositParams{
		MerchantRequestId: resp.MerchantRequestID,
		CheckoutRequestId: resp.CheckoutRequestID,
		Phone:             phone,
		Amount:            amount,
	})
	if err != nil {
		zap.L().Error("Failed to record pending deposit",
			zap.String("merchant_request_id", resp.MerchantRequestID),
			zap.Error(err))
		return nil, internalError(msgPaymentFailed, err)
	}

	zap.L().Info("Deposit pending",
		zap.String("phone", phone),
		zap.String("merchant_request_id", resp.MerchantRequestID),
		zap.String("checkout_request_id", resp.CheckoutRequestID))

	return ack, nil
}

// HandleDepositCallback settles a deposit from the provider's STK callback.
// The returned body is always acknowledged with HTTP 200.
func (s *GatewayService) HandleDepositCallback(ctx context.Context, envelope models.STKCallbackEnvelope) any {
	callback := envelope.Callback()
	if callback == nil {
		zap.L().Error("STK callback without stkCallback body")
		return models.ResultAck{ResultCode: models.NewCode(0), ResultDesc: "Accepted"}
	}

	details := models.ExtractDepositDetails(callback.Items())
	mrid := callback.MerchantRequestID

	params := store.SettleDepositParams{
		MerchantRequestId: mrid,
		Status:            models.StatusCompleted,
		ResultCode:        resultCode(callback.ResultCode),
		ResultDesc:        callback.ResultDesc,
		ReceiptNumber:     details.ReceiptNumber,
		TransactionDate:   details.TransactionDate,
	}

	if !callback.ResultCode.IsZero() {
		params.Status = models.StatusFailed
		if _, err := s.ledger.SettleDeposit(ctx, params); err != nil {
			zap.L().Error("Failed to mark deposit failed",
				zap.String("merchant_request_id", mrid),
				zap.Error(err))
		}
		zap.L().Info("Deposit failed",
			zap.String("merchant_request_id", mrid),
			zap.String("result_code", callback.ResultCode.String()),
			zap.String("result_desc", callback.ResultDesc))
		return models.ResultAck{ResultCode: callback.ResultCode, ResultDesc: callback.ResultDesc}
	}

	success := models.StatusAck{Status: "success"}

	deposit, err := s.ledger.GetDeposit(ctx, mrid)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			zap.L().Warn("Callback for unknown deposit, credit dropped",
				zap.String("merchant_request_id", mrid),
				zap.String("amount", details.Amount.String()))
		} else {
			zap.L().Error("Failed to load deposit",
				zap.String("merchant_request_id", mrid),
				zap.Error(err))
		}
		return success
	}
	if deposit.Status != models.StatusPending {
		zap.L().Info("Deposit already settled, skipping credit", zap.String("merchant_request_id", mrid))
		return success
	}

	// A deposit leaves pending only after its credit has been applied.
	if err := s.creditDeposit(ctx, mrid, details); err != nil {
		zap.L().Error("Deposit credit failed, left pending",
			zap.String("merchant_request_id", mrid),
			zap.String("amount", details.Amount.String()),
			zap.String("receipt", details.ReceiptNumber),
			zap.Error(err))
		return success
	}

	settled, err := s.ledger.SettleDeposit(ctx, params)
	if err != nil {
		zap.L().Error("Deposit credited but not marked completed",
			zap.String("merchant_request_id", mrid),
			zap.String("amount", details.Amount.String()),
			zap.Error(err))
		return success
	}
	if !settled {
		zap.L().Info("Deposit settled concurrently", zap.String("merchant_request_id", mrid))
	}
	return success
}

// creditDeposit applies the callback amount to the depositor's balance. Only
// retryable failures are returned; an absent amount or user drops the credit.
func (s *GatewayService) creditDeposit(ctx context.Context, mrid string, details models.DepositDetails) error {
	if !details.Amount.IsPositive() {
		zap.L().Warn("Completed deposit carries no amount, credit dropped",
			zap.String("merchant_request_id", mrid))
		return nil
	}

	user, err := s.ledger.FindUserByMerchantRequestID(ctx, mrid)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			zap.L().Warn("No user matches deposit, credit dropped",
				zap.String("merchant_request_id", mrid),
				zap.String("amount", details.Amount.String()))
			return nil
		}
		return fmt.Errorf("find depositor: %w", err)
	}

	newBalance, err := s.ledger.AdjustBalance(ctx, user.Phone, details.Amount, models.EntryDeposit, mrid)
	if err != nil {
		if errors.Is(err, store.ErrDuplicateTransaction) {
			zap.L().Info("Deposit already credited", zap.String("merchant_request_id", mrid))
			return nil
		}
		return fmt.Errorf("credit %s: %w", user.Phone, err)
	}

	zap.L().Info("Deposit credited",
		zap.String("phone", user.Phone),
		zap.String("amount", details.Amount.String()),
		zap.String("receipt", details.ReceiptNumber),
		zap.String("new_balance", newBalance.String()))
	return nil
}

// resultCode maps a provider code onto the stored integer; -1 when non-numeric
func resultCode(code models.Code) int {
	n, ok := code.Int()
	if !ok {
		return -1
	}
	return n
}
