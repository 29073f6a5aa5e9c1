package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRawAmount_Decimal(t *testing.T) {
	tests := []struct {
		body   string
		want   string
		expErr error
	}{
		{`{"amount":100}`, "100", nil},
		{`{"amount":"250.50"}`, "250.5", nil},
		{`{"amount":" 75 "}`, "75", nil},
		{`{}`, "", ErrAmountMissing},
		{`{"amount":null}`, "", ErrAmountMissing},
		{`{"amount":""}`, "", ErrAmountMissing},
		{`{"amount":"abc"}`, "", ErrAmountInvalid},
		{`{"amount":true}`, "", ErrAmountInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			var req DepositRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))

			amount, err := req.Amount.Decimal()
			if tt.expErr != nil {
				assert.ErrorIs(t, err, tt.expErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, amount.Equal(decimal.RequireFromString(tt.want)), "got %s", amount)
		})
	}
}

func TestReversalRequest_FieldNames(t *testing.T) {
	var req ReversalRequest
	require.NoError(t, json.Unmarshal([]byte(`{"transactionID":"NLJ41HAY6Q","amount":10}`), &req))
	assert.Equal(t, "NLJ41HAY6Q", req.TransactionID)

	amount, err := req.Amount.Decimal()
	require.NoError(t, err)
	assert.Equal(t, "10", amount.String())
}

func TestBalanceResponse_NumericBalance(t *testing.T) {
	data, err := json.Marshal(&BalanceResponse{Balance: decimal.RequireFromString("1250.50")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"balance":1250.5}`, string(data))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 1250.5, decoded["balance"])
}
