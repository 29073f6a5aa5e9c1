package models

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCode_Decoding(t *testing.T) {
	tests := []struct {
		raw        string
		isZero     bool
		zeroString bool
		asInt      int
		numeric    bool
	}{
		{`0`, true, false, 0, true},
		{`"0"`, true, true, 0, true},
		{`1032`, false, false, 1032, true},
		{`"1"`, false, false, 1, true},
		{`"SFC_IC0003"`, false, false, 0, false},
		{`null`, false, false, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			var code Code
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &code))
			assert.Equal(t, tt.isZero, code.IsZero())
			assert.Equal(t, tt.zeroString, code.IsZeroString())

			n, ok := code.Int()
			assert.Equal(t, tt.numeric, ok)
			assert.Equal(t, tt.asInt, n)
		})
	}
}

func TestCode_EncodingKeepsShape(t *testing.T) {
	for _, raw := range []string{`0`, `"0"`, `1032`, `"SFC_IC0003"`} {
		var code Code
		require.NoError(t, json.Unmarshal([]byte(raw), &code))
		out, err := json.Marshal(code)
		require.NoError(t, err)
		assert.Equal(t, raw, string(out))
	}

	out, err := json.Marshal(NewCode(0))
	require.NoError(t, err)
	assert.Equal(t, `0`, string(out))
}

func TestExtractDepositDetails(t *testing.T) {
	var callback STKCallback
	require.NoError(t, json.Unmarshal([]byte(`{
		"MerchantRequestID":"m-1","ResultCode":0,
		"CallbackMetadata":{"Item":[
			{"Name":"PhoneNumber","Value":254712345678},
			{"Name":"MpesaReceiptNumber","Value":"NLJ7RT61SV"},
			{"Name":"Amount","Value":1.5},
			{"Name":"TransactionDate","Value":20191219102115}
		]}}`), &callback))

	details := ExtractDepositDetails(callback.Items())
	assert.True(t, details.Amount.Equal(decimal.RequireFromString("1.5")))
	assert.Equal(t, "NLJ7RT61SV", details.ReceiptNumber)
	assert.Equal(t, "20191219102115", details.TransactionDate)
	assert.Equal(t, "254712345678", details.PhoneNumber)
}

func TestExtractDepositDetails_Defaults(t *testing.T) {
	details := ExtractDepositDetails(nil)
	assert.True(t, details.Amount.IsZero())
	assert.Equal(t, NotAvailable, details.ReceiptNumber)
	assert.Equal(t, NotAvailable, details.TransactionDate)
	assert.Equal(t, NotAvailable, details.PhoneNumber)

	details = ExtractDepositDetails([]MetadataItem{
		{Name: "Amount", Value: NewMetadataValue("not a number")},
		{Name: "MpesaReceiptNumber"},
	})
	assert.True(t, details.Amount.IsZero())
	assert.Equal(t, NotAvailable, details.ReceiptNumber)
}

func TestExtractWithdrawalDetails(t *testing.T) {
	var result Result
	require.NoError(t, json.Unmarshal([]byte(`{
		"ResultCode":0,"OriginatorConversationID":"ocid-1",
		"ResultParameters":{"ResultParameter":[
			{"Key":"TransactionAmount","Value":250},
			{"Key":"TransactionReceipt","Value":"NLJ41HAY6Q"},
			{"Key":"ReceiverPartyPublicName","Value":"254712345678 - John Doe"},
			{"Key":"TransactionCompletedDateTime","Value":"19.12.2019 11:45:50"},
			{"Key":"B2CUtilityAccountAvailableFunds","Value":10116.00},
			{"Key":"B2CWorkingAccountAvailableFunds","Value":900000.00},
			{"Key":"B2CRecipientIsRegisteredCustomer","Value":"Y"}
		]}}`), &result))

	details := ExtractWithdrawalDetails(result.Parameters())
	assert.True(t, details.AmountPresent)
	assert.True(t, details.Amount.Equal(decimal.NewFromInt(250)))
	assert.Equal(t, "NLJ41HAY6Q", details.ReceiptNumber)
	assert.Equal(t, "254712345678 - John Doe", details.ReceiverName)
	assert.Equal(t, "19.12.2019 11:45:50", details.CompletedAt)
	assert.Equal(t, "10116.00", details.UtilityBalance)
	assert.Equal(t, "Y", details.RecipientStatus)

	empty := ExtractWithdrawalDetails(nil)
	assert.False(t, empty.AmountPresent)
	assert.Equal(t, NotAvailable, empty.ReceiptNumber)
}

func TestEnvelopes_Malformed(t *testing.T) {
	var envelope STKCallbackEnvelope
	require.NoError(t, json.Unmarshal([]byte(`{}`), &envelope))
	assert.Nil(t, envelope.Callback())

	require.NoError(t, json.Unmarshal([]byte(`{"Body":{}}`), &envelope))
	assert.Nil(t, envelope.Callback())

	assert.Empty(t, STKCallback{}.Items())
	assert.Empty(t, Result{}.Parameters())
}
