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
	"time"

	"github.com/shopspring/decimal"
)

// Transaction statuses shared by deposits and withdrawals
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusTimeout   = "timeout"
)

// Balance entry kinds
const (
	EntryDeposit    = "deposit"
	EntryWithdrawal = "withdrawal"
)

// User is keyed by canonical phone number. The correlation fields only hold
// the most recent in-flight deposit/withdrawal.
type User struct {
	Phone                    string          `db:"phone" json:"phone"`
	Balance                  decimal.Decimal `db:"balance" json:"balance"`
	MerchantRequestId        string          `db:"merchant_request_id" json:"merchant_request_id,omitempty"`
	OriginatorConversationId string          `db:"originator_conversation_id" json:"originator_conversation_id,omitempty"`
	Version                  int64           `db:"version" json:"-"`
	CreatedAt                time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time       `db:"updated_at" json:"updated_at"`
}

// Deposit is an STK Push charge keyed by the provider's merchant request ID
type Deposit struct {
	MerchantRequestId string          `db:"merchant_request_id" json:"merchant_request_id"`
	CheckoutRequestId string          `db:"checkout_request_id" json:"checkout_request_id"`
	Phone             string          `db:"phone" json:"phone"`
	Amount            decimal.Decimal `db:"amount" json:"amount"`
	Status            string          `db:"status" json:"status"`
	ResultCode        int             `db:"result_code" json:"result_code"`
	ResultDesc        string          `db:"result_desc" json:"result_desc"`
	ReceiptNumber     string          `db:"receipt_number" json:"receipt_number"`
	TransactionDate   string          `db:"transaction_date" json:"transaction_date"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at" json:"updated_at"`
}

// Withdrawal is a B2C disbursement keyed by the originator conversation ID
type Withdrawal struct {
	OriginatorConversationId string          `db:"originator_conversation_id" json:"originator_conversation_id"`
	ConversationId           string          `db:"conversation_id" json:"conversation_id"`
	Phone                    string          `db:"phone" json:"phone"`
	Amount                   decimal.Decimal `db:"amount" json:"amount"`
	Status                   string          `db:"status" json:"status"`
	ResultCode               int             `db:"result_code" json:"result_code"`
	ResultDesc               string          `db:"result_desc" json:"result_desc"`
	TransactionId            string          `db:"transaction_id" json:"transaction_id"`
	ReceiptNumber            string          `db:"receipt_number" json:"receipt_number"`
	CreatedAt                time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time       `db:"updated_at" json:"updated_at"`
}

// BalanceEntry is the immutable audit record of one balance adjustment
type BalanceEntry struct {
	Id            string          `db:"id" json:"id"`
	Phone         string          `db:"phone" json:"phone"`
	Kind          string          `db:"kind" json:"kind"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	BalanceBefore decimal.Decimal `db:"balance_before" json:"balance_before"`
	BalanceAfter  decimal.Decimal `db:"balance_after" json:"balance_after"`
	Reference     string          `db:"reference" json:"reference"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
}

// OfflinePayment is an unsolicited C2B confirmation, stored as received
type OfflinePayment struct {
	Id         string    `db:"id" json:"id"`
	TransId    string    `db:"trans_id" json:"trans_id"`
	Payload    []byte    `db:"payload" json:"-"`
	ReceivedAt time.Time `db:"received_at" json:"received_at"`
}
