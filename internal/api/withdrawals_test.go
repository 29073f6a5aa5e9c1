package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"mpesa-gateway-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func b2cResult(t *testing.T, ocid string, resultCode int, params string) models.ResultEnvelope {
	parameters := ""
	if params != "" {
		parameters = fmt.Sprintf(`,"ResultParameters":{"ResultParameter":[%s]}`, params)
	}
	body := fmt.Sprintf(`{"Result":{"ResultType":0,"ResultCode":%d,"ResultDesc":"The service request is processed successfully.","OriginatorConversationID":%q,"ConversationID":"AG_20240101_1","TransactionID":"NLJ41HAY6Q"%s}}`,
		resultCode, ocid, parameters)
	return decodeJSON[models.ResultEnvelope](t, body)
}

func withdraw(t *testing.T, gateway *GatewayService, amount string) (*models.ProviderAck, error) {
	t.Helper()
	return gateway.InitiateWithdrawal(context.Background(), models.WithdrawalRequest{
		PhoneNumber: "0712345678",
		Amount:      models.RawAmount(amount),
	})
}

func TestInitiateWithdrawal_MinimumAmount(t *testing.T) {
	for _, amount := range []string{"9", "9.99", `"5"`, `"ten"`, "-100"} {
		t.Run(amount, func(t *testing.T) {
			gateway, ledger, provider := newTestGateway(t)
			fundUser(t, ledger, testPhone, 1000)

			_, err := withdraw(t, gateway, amount)
			assertAPIError(t, err, http.StatusBadRequest, msgMinimumWithdrawal)
			assert.Equal(t, 0, provider.b2cCalls)
		})
	}
}

func TestInitiateWithdrawal_MissingFields(t *testing.T) {
	gateway, _, provider := newTestGateway(t)

	_, err := gateway.InitiateWithdrawal(context.Background(), models.WithdrawalRequest{Amount: models.RawAmount("100")})
	assertAPIError(t, err, http.StatusBadRequest, msgFieldsRequired)

	_, err = gateway.InitiateWithdrawal(context.Background(), models.WithdrawalRequest{PhoneNumber: "0712345678"})
	assertAPIError(t, err, http.StatusBadRequest, msgFieldsRequired)

	assert.Equal(t, 0, provider.b2cCalls)
}

func TestInitiateWithdrawal_UnknownUser(t *testing.T) {
	gateway, _, provider := newTestGateway(t)

	_, err := withdraw(t, gateway, "100")
	assertAPIError(t, err, http.StatusNotFound, msgUserNotFound)
	assert.Equal(t, 0, provider.b2cCalls)
}

func TestInitiateWithdrawal_InsufficientBalance(t *testing.T) {
	gateway, ledger, provider := newTestGateway(t)
	fundUser(t, ledger, testPhone, 50)

	_, err := withdraw(t, gateway, "100")
	assertAPIError(t, err, http.StatusBadRequest, msgInsufficientBalance)
	assert.Equal(t, 0, provider.b2cCalls)
}

func TestInitiateWithdrawal_RecordsPendingWithdrawal(t *testing.T) {
	gateway, ledger, provider := newTestGateway(t)
	fundUser(t, ledger, testPhone, 1000)
	ctx := context.Background()

	ack, err := withdraw(t, gateway, "250.75")
	require.NoError(t, err)
	assert.Equal(t, "0", ack.ResponseCode)
	assert.Equal(t, "ocid-1", provider.b2cOriginator)
	assert.True(t, provider.b2cAmount.Equal(decimal.NewFromInt(250)))

	withdrawal, err := ledger.GetWithdrawal(ctx, "ocid-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, withdrawal.Status)
	assert.Equal(t, "AG_20240101_1", withdrawal.ConversationId)
	assert.True(t, withdrawal.Amount.Equal(decimal.NewFromInt(250)))

	user, err := ledger.GetUser(ctx, testPhone)
	require.NoError(t, err)
	assert.Equal(t, "ocid-1", user.OriginatorConversationId)
	assert.True(t, user.Balance.Equal(decimal.NewFromInt(1000)), "balance is only debited by the result callback")
}

func TestInitiateWithdrawal_UsesEchoedOriginatorId(t *testing.T) {
	gateway, ledger, provider := newTestGateway(t)
	fundUser(t, ledger, testPhone, 1000)
	provider.b2cResp = &models.B2CResponse{
		OriginatorConversationID: "provider-ocid",
		ConversationID:           "AG_2",
		ResponseCode:             models.Code{Raw: "0", Quoted: true},
	}

	_, err := withdraw(t, gateway, "100")
	require.NoError(t, err)

	_, err = ledger.GetWithdrawal(context.Background(), "provider-ocid")
	assert.NoError(t, err)
}

func TestInitiateWithdrawal_ProviderRejection(t *testing.T) {
	tests := []struct {
		name string
		code models.Code
	}{
		{"non-zero code", models.Code{Raw: "1", Quoted: true}},
		{"numeric zero", models.NewCode(0)},
		{"missing code", models.Code{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gateway, ledger, provider := newTestGateway(t)
			fundUser(t, ledger, testPhone, 1000)
			provider.b2cResp = &models.B2CResponse{OriginatorConversationID: "ocid-1", ResponseCode: tt.code}

			_, err := withdraw(t, gateway, "100")
			assertAPIError(t, err, http.StatusBadRequest, msgWithdrawalFailed)

			_, err = ledger.GetWithdrawal(context.Background(), "ocid-1")
			assert.Error(t, err)
		})
	}
}

func TestInitiateWithdrawal_ProviderFailure(t *testing.T) {
	gateway, ledger, provider := newTestGateway(t)
	fundUser(t, ledger, testPhone, 1000)
	provider.b2cErr = errors.New("failed to read certificate")

	_, err := withdraw(t, gateway, "100")
	assertAPIError(t, err, http.StatusInternalServerError, msgInternal)
}

func TestHandleWithdrawalResult_DebitsOnce(t *testing.T) {
	gateway, ledger, _ := newTestGateway(t)
	fundUser(t, ledger, testPhone, 1000)
	ctx := context.Background()

	_, err := withdraw(t, gateway, "300")
	require.NoError(t, err)

	result := b2cResult(t, "ocid-1", 0,
		`{"Key":"TransactionAmount","Value":300},{"Key":"TransactionReceipt","Value":"NLJ41HAY6Q"},{"Key":"ReceiverPartyPublicName","Value":"254712345678 - John Doe"}`)
	assert.Equal(t, models.StatusAck{Status: "success"}, gateway.HandleWithdrawalResult(ctx, result))
	assert.Equal(t, models.StatusAck{Status: "success"}, gateway.HandleWithdrawalResult(ctx, result))

	assert.True(t, balanceOf(t, ledger, testPhone).Equal(decimal.NewFromInt(700)))

	withdrawal, err := ledger.GetWithdrawal(ctx, "ocid-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, withdrawal.Status)
	assert.Equal(t, "NLJ41HAY6Q", withdrawal.ReceiptNumber)
	assert.Equal(t, "NLJ41HAY6Q", withdrawal.TransactionId)
}

func TestHandleWithdrawalResult_FallsBackToRecordedAmount(t *testing.T) {
	gateway, ledger, _ := newTestGateway(t)
	fundUser(t, ledger, testPhone, 1000)
	ctx := context.Background()

	_, err := withdraw(t, gateway, "120")
	require.NoError(t, err)

	gateway.HandleWithdrawalResult(ctx, b2cResult(t, "ocid-1", 0, ""))
	assert.True(t, balanceOf(t, ledger, testPhone).Equal(decimal.NewFromInt(880)))
}

func TestHandleWithdrawalResult_FailureLeavesBalance(t *testing.T) {
	gateway, ledger, _ := newTestGateway(t)
	fundUser(t, ledger, testPhone, 1000)
	ctx := context.Background()

	_, err := withdraw(t, gateway, "100")
	require.NoError(t, err)

	gateway.HandleWithdrawalResult(ctx, b2cResult(t, "ocid-1", 2001, ""))
	assert.True(t, balanceOf(t, ledger, testPhone).Equal(decimal.NewFromInt(1000)))

	withdrawal, err := ledger.GetWithdrawal(ctx, "ocid-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, withdrawal.Status)
	assert.Equal(t, 2001, withdrawal.ResultCode)
}

func TestHandleWithdrawalResult_UnmatchedResultIsAcknowledged(t *testing.T) {
	gateway, _, _ := newTestGateway(t)
	ctx := context.Background()

	assert.Equal(t, models.StatusAck{Status: "success"}, gateway.HandleWithdrawalResult(ctx, b2cResult(t, "reversal-1", 0, "")))
	assert.Equal(t, models.StatusAck{Status: "success"}, gateway.HandleWithdrawalResult(ctx, models.ResultEnvelope{}))
}

func TestHandleWithdrawalTimeout(t *testing.T) {
	gateway, ledger, _ := newTestGateway(t)
	fundUser(t, ledger, testPhone, 1000)
	ctx := context.Background()

	_, err := withdraw(t, gateway, "100")
	require.NoError(t, err)

	timeout := decodeJSON[models.ResultEnvelope](t,
		`{"Result":{"ResultType":0,"ResultCode":"SFC_IC0003","ResultDesc":"The transaction timed out","OriginatorConversationID":"ocid-1"}}`)
	assert.Equal(t, models.StatusAck{Status: "Timeout"}, gateway.HandleWithdrawalTimeout(ctx, timeout))

	withdrawal, err := ledger.GetWithdrawal(ctx, "ocid-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusTimeout, withdrawal.Status)
	assert.Equal(t, -1, withdrawal.ResultCode)
	assert.Equal(t, "The transaction timed out", withdrawal.ResultDesc)

	// A late result cannot move the withdrawal out of timeout
	gateway.HandleWithdrawalResult(ctx, b2cResult(t, "ocid-1", 0, `{"Key":"TransactionAmount","Value":100}`))
	assert.True(t, balanceOf(t, ledger, testPhone).Equal(decimal.NewFromInt(1000)))

	assert.Equal(t, models.StatusAck{Status: "Timeout"}, gateway.HandleWithdrawalTimeout(ctx, models.ResultEnvelope{}))
}

func TestHandleWithdrawalResult_FailedDebitStaysPendingForRetry(t *testing.T) {
	gateway, ledger, _ := newTestGateway(t)
	fundUser(t, ledger, testPhone, 1000)
	ctx := context.Background()

	_, err := withdraw(t, gateway, "400")
	require.NoError(t, err)

	gateway.ledger = &flakyLedger{LedgerStore: ledger, failAdjust: 1}
	result := b2cResult(t, "ocid-1", 0, `{"Key":"TransactionAmount","Value":400}`)

	assert.Equal(t, models.StatusAck{Status: "success"}, gateway.HandleWithdrawalResult(ctx, result))
	withdrawal, err := ledger.GetWithdrawal(ctx, "ocid-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, withdrawal.Status)
	assert.True(t, balanceOf(t, ledger, testPhone).Equal(decimal.NewFromInt(1000)))

	assert.Equal(t, models.StatusAck{Status: "success"}, gateway.HandleWithdrawalResult(ctx, result))
	withdrawal, err = ledger.GetWithdrawal(ctx, "ocid-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, withdrawal.Status)
	assert.True(t, balanceOf(t, ledger, testPhone).Equal(decimal.NewFromInt(600)))
}
