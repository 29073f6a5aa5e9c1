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
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// NotAvailable is substituted for metadata items the provider left out
const NotAvailable = "N/A"

// Code is a provider result/response code. Daraja sends these as JSON
// numbers in some payloads and as strings in others.
type Code struct {
	Raw    string
	Quoted bool
}

func (c *Code) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = Code{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Code{Raw: s, Quoted: true}
		return nil
	}
	*c = Code{Raw: string(data)}
	return nil
}

func (c Code) MarshalJSON() ([]byte, error) {
	if c.Raw == "" {
		return []byte("null"), nil
	}
	if c.Quoted {
		return json.Marshal(c.Raw)
	}
	if _, err := strconv.ParseFloat(c.Raw, 64); err != nil {
		return json.Marshal(c.Raw)
	}
	return []byte(c.Raw), nil
}

// Int returns the numeric value of the code, if it has one
func (c Code) Int() (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(c.Raw))
	if err != nil {
		return 0, false
	}
	return n, true
}

// IsZero reports whether the code is numerically zero
func (c Code) IsZero() bool {
	n, ok := c.Int()
	return ok && n == 0
}

// IsZeroString reports whether the code is the literal string "0"
func (c Code) IsZeroString() bool {
	return c.Quoted && c.Raw == "0"
}

func (c Code) String() string {
	return c.Raw
}

// NewCode builds a numeric code
func NewCode(n int) Code {
	return Code{Raw: strconv.Itoa(n)}
}

// MetadataValue holds a name/value item's value, which may be a string or number
type MetadataValue struct {
	raw json.RawMessage
}

func (v *MetadataValue) UnmarshalJSON(data []byte) error {
	v.raw = append(v.raw[:0], data...)
	return nil
}

func (v MetadataValue) MarshalJSON() ([]byte, error) {
	if len(v.raw) == 0 {
		return []byte("null"), nil
	}
	return v.raw, nil
}

// NewMetadataValue wraps any JSON-encodable value
func NewMetadataValue(value any) MetadataValue {
	raw, err := json.Marshal(value)
	if err != nil {
		return MetadataValue{}
	}
	return MetadataValue{raw: raw}
}

// String returns the value as text, keeping number literals verbatim
func (v MetadataValue) String() string {
	raw := bytes.TrimSpace(v.raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	return string(raw)
}

// MetadataItem is an STK callback name/value pair
type MetadataItem struct {
	Name  string        `json:"Name"`
	Value MetadataValue `json:"Value"`
}

// ResultParameter is a B2C result key/value pair
type ResultParameter struct {
	Key   string        `json:"Key"`
	Value MetadataValue `json:"Value"`
}

// DepositDetails is the typed view over STK callback metadata
type DepositDetails struct {
	Amount          decimal.Decimal
	ReceiptNumber   string
	TransactionDate string
	PhoneNumber     string
}

// ExtractDepositDetails maps the unordered metadata list onto DepositDetails.
// Missing strings become N/A and a missing or unparseable amount becomes zero.
func ExtractDepositDetails(items []MetadataItem) DepositDetails {
	lookup := func(name string) string {
		for _, item := range items {
			if item.Name == name {
				if s := item.Value.String(); s != "" {
					return s
				}
			}
		}
		return NotAvailable
	}

	return DepositDetails{
		Amount:          parseAmount(lookup("Amount")),
		ReceiptNumber:   lookup("MpesaReceiptNumber"),
		TransactionDate: lookup("TransactionDate"),
		PhoneNumber:     lookup("PhoneNumber"),
	}
}

// WithdrawalDetails is the typed view over B2C result parameters
type WithdrawalDetails struct {
	Amount          decimal.Decimal
	ReceiptNumber   string
	ReceiverName    string
	CompletedAt     string
	AmountPresent   bool
	UtilityBalance  string
	WorkingBalance  string
	RecipientStatus string
}

// ExtractWithdrawalDetails maps B2C result parameters onto WithdrawalDetails
func ExtractWithdrawalDetails(params []ResultParameter) WithdrawalDetails {
	lookup := func(key string) (string, bool) {
		for _, p := range params {
			if p.Key == key {
				if s := p.Value.String(); s != "" {
					return s, true
				}
			}
		}
		return NotAvailable, false
	}

	amountStr, amountPresent := lookup("TransactionAmount")
	receipt, _ := lookup("TransactionReceipt")
	receiver, _ := lookup("ReceiverPartyPublicName")
	completed, _ := lookup("TransactionCompletedDateTime")
	utility, _ := lookup("B2CUtilityAccountAvailableFunds")
	working, _ := lookup("B2CWorkingAccountAvailableFunds")
	registered, _ := lookup("B2CRecipientIsRegisteredCustomer")

	amount := parseAmount(amountStr)
	return WithdrawalDetails{
		Amount:          amount,
		AmountPresent:   amountPresent && !amount.IsZero(),
		ReceiptNumber:   receipt,
		ReceiverName:    receiver,
		CompletedAt:     completed,
		UtilityBalance:  utility,
		WorkingBalance:  working,
		RecipientStatus: registered,
	}
}

func parseAmount(s string) decimal.Decimal {
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return amount
}

// STKPushRequest is the Daraja processrequest body
type STKPushRequest struct {
	BusinessShortCode string      `json:"BusinessShortCode"`
	Password          string      `json:"Password"`
	Timestamp         string      `json:"Timestamp"`
	TransactionType   string      `json:"TransactionType"`
	Amount            json.Number `json:"Amount"`
	PartyA            string      `json:"PartyA"`
	PartyB            string      `json:"PartyB"`
	PhoneNumber       string      `json:"PhoneNumber"`
	CallBackURL       string      `json:"CallBackURL"`
	AccountReference  string      `json:"AccountReference"`
	TransactionDesc   string      `json:"TransactionDesc"`
}

// STKPushResponse is the synchronous acknowledgement of an STK Push
type STKPushResponse struct {
	MerchantRequestID   string `json:"MerchantRequestID"`
	CheckoutRequestID   string `json:"CheckoutRequestID"`
	ResponseCode        string `json:"ResponseCode"`
	ResponseDescription string `json:"ResponseDescription"`
	CustomerMessage     string `json:"CustomerMessage"`
}

// B2CRequest is the Daraja paymentrequest body
type B2CRequest struct {
	OriginatorConversationID string      `json:"OriginatorConversationID"`
	InitiatorName            string      `json:"InitiatorName"`
	SecurityCredential       string      `json:"SecurityCredential"`
	CommandID                string      `json:"CommandID"`
	Amount                   json.Number `json:"Amount"`
	PartyA                   string      `json:"PartyA"`
	PartyB                   string      `json:"PartyB"`
	Remarks                  string      `json:"Remarks"`
	QueueTimeOutURL          string      `json:"QueueTimeOutURL"`
	ResultURL                string      `json:"ResultURL"`
	Occassion                string      `json:"Occassion"`
}

// B2CResponse is the synchronous acknowledgement of a B2C request
type B2CResponse struct {
	ConversationID           string `json:"ConversationID"`
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ResponseCode             Code   `json:"ResponseCode"`
	ResponseDescription      string `json:"ResponseDescription"`
}

// ReversalBody is the Daraja reversal body
type ReversalBody struct {
	Initiator              string      `json:"Initiator"`
	SecurityCredential     string      `json:"SecurityCredential"`
	CommandID              string      `json:"CommandID"`
	TransactionID          string      `json:"TransactionID"`
	Amount                 json.Number `json:"Amount"`
	ReceiverParty          string      `json:"ReceiverParty"`
	RecieverIdentifierType string      `json:"RecieverIdentifierType"`
	ResultURL              string      `json:"ResultURL"`
	QueueTimeOutURL        string      `json:"QueueTimeOutURL"`
	Remarks                string      `json:"Remarks"`
	Occassion              string      `json:"Occassion"`
}

// TransactionStatusBody is the Daraja transactionstatus query body
type TransactionStatusBody struct {
	Initiator          string `json:"Initiator"`
	SecurityCredential string `json:"SecurityCredential"`
	CommandID          string `json:"CommandID"`
	TransactionID      string `json:"TransactionID"`
	PartyA             string `json:"PartyA"`
	IdentifierType     string `json:"IdentifierType"`
	ResultURL          string `json:"ResultURL"`
	QueueTimeOutURL    string `json:"QueueTimeOutURL"`
	Remarks            string `json:"Remarks"`
	Occassion          string `json:"Occassion"`
}

// STKCallbackEnvelope is the body posted to the deposit callback URL
type STKCallbackEnvelope struct {
	Body *struct {
		StkCallback *STKCallback `json:"stkCallback"`
	} `json:"Body"`
}

// Callback returns the inner callback or nil when the payload is malformed
func (e STKCallbackEnvelope) Callback() *STKCallback {
	if e.Body == nil {
		return nil
	}
	return e.Body.StkCallback
}

// STKCallback is the asynchronous result of an STK Push
type STKCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        Code   `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  *struct {
		Item []MetadataItem `json:"Item"`
	} `json:"CallbackMetadata,omitempty"`
}

// Items returns the metadata list, empty when absent
func (c STKCallback) Items() []MetadataItem {
	if c.CallbackMetadata == nil {
		return nil
	}
	return c.CallbackMetadata.Item
}

// ResultEnvelope is the body posted to B2C result and timeout URLs
type ResultEnvelope struct {
	Result *Result `json:"Result"`
}

// Result is the asynchronous outcome of a B2C, reversal or status request
type Result struct {
	ResultType               Code   `json:"ResultType"`
	ResultCode               Code   `json:"ResultCode"`
	ResultDesc               string `json:"ResultDesc"`
	OriginatorConversationID string `json:"OriginatorConversationID"`
	ConversationID           string `json:"ConversationID"`
	TransactionID            string `json:"TransactionID"`
	ResultParameters         *struct {
		ResultParameter []ResultParameter `json:"ResultParameter"`
	} `json:"ResultParameters,omitempty"`
}

// Parameters returns the result parameter list, empty when absent
func (r Result) Parameters() []ResultParameter {
	if r.ResultParameters == nil {
		return nil
	}
	return r.ResultParameters.ResultParameter
}
