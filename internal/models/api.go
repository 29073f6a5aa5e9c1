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

package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrAmountMissing is returned when no amount was supplied
	ErrAmountMissing = errors.New("amount missing")
	// ErrAmountInvalid is returned when the amount is not a number
	ErrAmountInvalid = errors.New("amount is not a number")
)

// RawAmount is a client-supplied amount, accepted as a JSON number or numeric string
type RawAmount json.RawMessage

func (a *RawAmount) UnmarshalJSON(data []byte) error {
	*a = append((*a)[:0], data...)
	return nil
}

// Decimal parses the amount
func (a RawAmount) Decimal() (decimal.Decimal, error) {
	raw := bytes.TrimSpace(a)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return decimal.Zero, ErrAmountMissing
	}

	text := string(raw)
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return decimal.Zero, ErrAmountInvalid
		}
		text = strings.TrimSpace(s)
		if text == "" {
			return decimal.Zero, ErrAmountMissing
		}
	}

	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, ErrAmountInvalid
	}
	return amount, nil
}

// DepositRequest is the body of POST /api/pay
type DepositRequest struct {
	PhoneNumber string    `json:"phoneNumber"`
	Amount      RawAmount `json:"amount"`
}

// ProviderAck echoes the provider's acknowledgement fields only
type ProviderAck struct {
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
}

// WithdrawalRequest is the body of POST /api/withdraw
type WithdrawalRequest struct {
	PhoneNumber string    `json:"phoneNumber"`
	Amount      RawAmount `json:"amount"`
}

// ReversalRequest is the body of POST /api/reversal
type ReversalRequest struct {
	TransactionID string    `json:"transactionID"`
	Amount        RawAmount `json:"amount"`
}

// TransactionStatusRequest is the body of POST /api/transaction-status
type TransactionStatusRequest struct {
	TransactionID string `json:"transactionID"`
}

// BalanceResponse is returned by GET /api/balance
type BalanceResponse struct {
	Balance decimal.Decimal
}

// MarshalJSON writes the balance as a bare JSON number
func (b BalanceResponse) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Balance json.Number `json:"balance"`
	}{Balance: json.Number(b.Balance.String())})
}

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusAck acknowledges a settled webhook
type StatusAck struct {
	Status string `json:"status"`
}

// ResultAck acknowledges a webhook in the provider's own shape
type ResultAck struct {
	ResultCode Code   `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}
