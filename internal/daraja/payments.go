package daraja

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mpesa-gateway-go/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// STKPush asks the provider to prompt phone for a payment of amount
func (s *Service) STKPush(ctx context.Context, phone string, amount decimal.Decimal) (*models.STKPushResponse, error) {
	token, err := s.GenerateToken(ctx)
	if err != nil {
		return nil, err
	}

	timestamp := Timestamp(time.Now())
	request := models.STKPushRequest{
		BusinessShortCode: s.cfg.ShortCode,
		Password:          STKPassword(s.cfg.ShortCode, s.cfg.Passkey, timestamp),
		Timestamp:         timestamp,
		TransactionType:   "CustomerPayBillOnline",
		Amount:            json.Number(amount.String()),
		PartyA:            phone,
		PartyB:            s.cfg.ShortCode,
		PhoneNumber:       phone,
		CallBackURL:       s.callbackURL("/callback"),
		AccountReference:  "Account",
		TransactionDesc:   "Deposit",
	}

	var response models.STKPushResponse
	if err := s.postJSON(ctx, "stk push", pathSTKPush, token, request, &response); err != nil {
		return nil, err
	}

	zap.L().Info("STK push accepted",
		zap.String("merchant_request_id", response.MerchantRequestID),
		zap.String("checkout_request_id", response.CheckoutRequestID),
		zap.String("response_code", response.ResponseCode))
	return &response, nil
}

// B2CPayment disburses amount to phone from the B2C shortcode
func (s *Service) B2CPayment(ctx context.Context, phone string, amount decimal.Decimal, originatorConversationId string) (*models.B2CResponse, error) {
	credential, err := GenerateSecurityCredential(s.cfg.InitiatorPassword, s.cfg.SecurityCertPath)
	if err != nil {
		return nil, fmt.Errorf("b2c payment: %w", err)
	}

	token, err := s.GenerateToken(ctx)
	if err != nil {
		return nil, err
	}

	request := models.B2CRequest{
		OriginatorConversationID: originatorConversationId,
		InitiatorName:            s.cfg.InitiatorName,
		SecurityCredential:       credential,
		CommandID:                "BusinessPayment",
		Amount:                   json.Number(amount.String()),
		PartyA:                   s.cfg.B2CShortCode,
		PartyB:                   phone,
		Remarks:                  "Withdrawal",
		QueueTimeOutURL:          s.callbackURL("/timeout"),
		ResultURL:                s.callbackURL("/withdraw/results"),
		Occassion:                "User withdrawal",
	}

	var response models.B2CResponse
	if err := s.postJSON(ctx, "b2c payment", pathB2CPayment, token, request, &response); err != nil {
		return nil, err
	}

	zap.L().Info("B2C payment acknowledged",
		zap.String("originator_conversation_id", response.OriginatorConversationID),
		zap.String("conversation_id", response.ConversationID),
		zap.String("response_code", response.ResponseCode.String()))
	return &response, nil
}

// Reversal requests reversal of a completed provider transaction. The raw
// provider reply is returned.
func (s *Service) Reversal(ctx context.Context, transactionId string, amount decimal.Decimal) (map[string]any, error) {
	credential, err := GenerateSecurityCredential(s.cfg.InitiatorPassword, s.cfg.SecurityCertPath)
	if err != nil {
		return nil, fmt.Errorf("reversal: %w", err)
	}

	token, err := s.GenerateToken(ctx)
	if err != nil {
		return nil, err
	}

	request := models.ReversalBody{
		Initiator:              s.cfg.InitiatorName,
		SecurityCredential:     credential,
		CommandID:              "TransactionReversal",
		TransactionID:          transactionId,
		Amount:                 json.Number(amount.String()),
		ReceiverParty:          s.cfg.ShortCode,
		RecieverIdentifierType: "11",
		ResultURL:              s.callbackURL("/reversal/results"),
		QueueTimeOutURL:        s.callbackURL("/timeout"),
		Remarks:                "Reverse transaction",
		Occassion:              "work",
	}

	var response map[string]any
	if err := s.postJSON(ctx, "reversal", pathReversal, token, request, &response); err != nil {
		return nil, err
	}
	return response, nil
}

// TransactionStatus queries the provider for a transaction's state
func (s *Service) TransactionStatus(ctx context.Context, transactionId string) (map[string]any, error) {
	credential, err := GenerateSecurityCredential(s.cfg.InitiatorPassword, s.cfg.SecurityCertPath)
	if err != nil {
		return nil, fmt.Errorf("transaction status: %w", err)
	}

	token, err := s.GenerateToken(ctx)
	if err != nil {
		return nil, err
	}

	request := models.TransactionStatusBody{
		Initiator:          s.cfg.InitiatorName,
		SecurityCredential: credential,
		CommandID:          "TransactionStatusQuery",
		TransactionID:      transactionId,
		PartyA:             s.cfg.ShortCode,
		IdentifierType:     "1",
		ResultURL:          s.callbackURL("/transaction-status/results"),
		QueueTimeOutURL:    s.callbackURL("/timeout"),
		Remarks:            "Transaction status check",
		Occassion:          "",
	}

	var response map[string]any
	if err := s.postJSON(ctx, "transaction status", pathTransactionStatus, token, request, &response); err != nil {
		return nil, err
	}
	return response, nil
}
