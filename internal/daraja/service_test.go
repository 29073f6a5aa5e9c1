package daraja

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"errors"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"mpesa-gateway-go/internal/daraja/darajatest"
	"mpesa-gateway-go/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, provider *darajatest.Server) (*Service, *rsa.PrivateKey) {
	t.Helper()

	certPath, key := darajatest.WriteCertificate(t)
	service, err := NewService(models.DarajaConfig{
		BaseURL:           provider.URL,
		CallbackBaseURL:   "https://gateway.example.com/api",
		ConsumerKey:       "consumer-key",
		ConsumerSecret:    "consumer-secret",
		Passkey:           "passkey",
		ShortCode:         "174379",
		B2CShortCode:      "600996",
		InitiatorName:     "testapi",
		InitiatorPassword: "Safaricom999!*!",
		SecurityCertPath:  certPath,
		HTTPTimeout:       5 * time.Second,
	})
	require.NoError(t, err)
	return service, key
}

func TestNewService_RequiresBaseURL(t *testing.T) {
	_, err := NewService(models.DarajaConfig{})
	assert.Error(t, err)
}

func TestGenerateToken(t *testing.T) {
	provider := darajatest.NewServer(t)
	service, _ := newTestService(t, provider)

	token, err := service.GenerateToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, darajatest.AccessToken, token)

	requests := provider.Requests(darajatest.PathToken)
	require.Len(t, requests, 1)
	expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("consumer-key:consumer-secret"))
	assert.Equal(t, expected, requests[0].Authorization)
}

func TestGenerateToken_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
	}{
		{"unauthorized", http.StatusUnauthorized, map[string]any{"errorMessage": "Invalid credentials"}},
		{"server error", http.StatusInternalServerError, "boom"},
		{"empty token", http.StatusOK, map[string]any{"expires_in": "3599"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := darajatest.NewServer(t)
			provider.Respond(darajatest.PathToken, tt.status, tt.body)
			service, _ := newTestService(t, provider)

			_, err := service.GenerateToken(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestSTKPush_BuildsRequest(t *testing.T) {
	provider := darajatest.NewServer(t)
	service, _ := newTestService(t, provider)

	response, err := service.STKPush(context.Background(), "254712345678", decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.Equal(t, "m-1", response.MerchantRequestID)
	assert.Equal(t, "0", response.ResponseCode)

	requests := provider.Requests(darajatest.PathSTKPush)
	require.Len(t, requests, 1)
	body := requests[0].Body
	assert.Equal(t, darajatest.AccessToken, darajatest.BearerToken(requests[0].Authorization))
	assert.Equal(t, "174379", body["BusinessShortCode"])
	assert.Equal(t, "CustomerPayBillOnline", body["TransactionType"])
	assert.Equal(t, float64(100), body["Amount"])
	assert.Equal(t, "254712345678", body["PartyA"])
	assert.Equal(t, "174379", body["PartyB"])
	assert.Equal(t, "254712345678", body["PhoneNumber"])
	assert.Equal(t, "https://gateway.example.com/api/callback", body["CallBackURL"])
	assert.Equal(t, "Account", body["AccountReference"])
	assert.Equal(t, "Deposit", body["TransactionDesc"])

	timestamp, _ := body["Timestamp"].(string)
	assert.Len(t, timestamp, 14)
	assert.Equal(t, STKPassword("174379", "passkey", timestamp), body["Password"])
}

func TestSTKPush_ProviderError(t *testing.T) {
	provider := darajatest.NewServer(t)
	provider.Respond(darajatest.PathSTKPush, http.StatusBadRequest, map[string]any{"errorMessage": "Invalid Access Token"})
	service, _ := newTestService(t, provider)

	_, err := service.STKPush(context.Background(), "254712345678", decimal.NewFromInt(100))
	require.Error(t, err)

	var providerErr *ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, http.StatusBadRequest, providerErr.StatusCode)
	assert.Contains(t, providerErr.Body, "Invalid Access Token")
	assert.NotContains(t, err.Error(), "Invalid Access Token")
}

func TestB2CPayment_BuildsRequest(t *testing.T) {
	provider := darajatest.NewServer(t)
	service, key := newTestService(t, provider)

	response, err := service.B2CPayment(context.Background(), "254712345678", decimal.NewFromInt(50), "oc-1")
	require.NoError(t, err)
	assert.True(t, response.ResponseCode.IsZeroString())
	assert.Equal(t, "oc-1", response.OriginatorConversationID)

	requests := provider.Requests(darajatest.PathB2CPayment)
	require.Len(t, requests, 1)
	body := requests[0].Body
	assert.Equal(t, "oc-1", body["OriginatorConversationID"])
	assert.Equal(t, "testapi", body["InitiatorName"])
	assert.Equal(t, "BusinessPayment", body["CommandID"])
	assert.Equal(t, float64(50), body["Amount"])
	assert.Equal(t, "600996", body["PartyA"])
	assert.Equal(t, "254712345678", body["PartyB"])
	assert.Equal(t, "Withdrawal", body["Remarks"])
	assert.Equal(t, "https://gateway.example.com/api/timeout", body["QueueTimeOutURL"])
	assert.Equal(t, "https://gateway.example.com/api/withdraw/results", body["ResultURL"])
	assert.Equal(t, "User withdrawal", body["Occassion"])

	credential, _ := body["SecurityCredential"].(string)
	ciphertext, err := base64.StdEncoding.DecodeString(credential)
	require.NoError(t, err)
	plaintext, err := rsa.DecryptPKCS1v15(rand.Reader, key, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "Safaricom999!*!", string(plaintext))
}

func TestB2CPayment_MissingCertificateSkipsProvider(t *testing.T) {
	provider := darajatest.NewServer(t)
	service, _ := newTestService(t, provider)
	service.cfg.SecurityCertPath = filepath.Join(t.TempDir(), "missing.cer")

	_, err := service.B2CPayment(context.Background(), "254712345678", decimal.NewFromInt(50), "oc-1")
	assert.Error(t, err)
	assert.Equal(t, 0, provider.Calls())
}

func TestReversalAndStatus(t *testing.T) {
	provider := darajatest.NewServer(t)
	service, _ := newTestService(t, provider)
	ctx := context.Background()

	reversal, err := service.Reversal(ctx, "NLJ41HAY6Q", decimal.NewFromInt(10))
	require.NoError(t, err)
	assert.Equal(t, "0", reversal["ResponseCode"])

	body := provider.Requests(darajatest.PathReversal)[0].Body
	assert.Equal(t, "TransactionReversal", body["CommandID"])
	assert.Equal(t, "NLJ41HAY6Q", body["TransactionID"])
	assert.Equal(t, "11", body["RecieverIdentifierType"])
	assert.Equal(t, "https://gateway.example.com/api/reversal/results", body["ResultURL"])

	status, err := service.TransactionStatus(ctx, "NLJ41HAY6Q")
	require.NoError(t, err)
	assert.Equal(t, "0", status["ResponseCode"])

	body = provider.Requests(darajatest.PathTransactionStatus)[0].Body
	assert.Equal(t, "TransactionStatusQuery", body["CommandID"])
	assert.Equal(t, "1", body["IdentifierType"])
	assert.Equal(t, "https://gateway.example.com/api/transaction-status/results", body["ResultURL"])
}

func TestGenerateSecurityCredential_DERCertificate(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	template := &x509.Certificate{
		SerialNumber: big.NewInt(2),
		Subject:      pkix.Name{CommonName: "der"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "cert.der")
	require.NoError(t, os.WriteFile(path, der, 0o600))

	credential, err := GenerateSecurityCredential("secret", path)
	require.NoError(t, err)

	ciphertext, err := base64.StdEncoding.DecodeString(credential)
	require.NoError(t, err)
	plaintext, err := rsa.DecryptPKCS1v15(rand.Reader, key, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, "secret", string(plaintext))
}

func TestGenerateSecurityCredential_Failures(t *testing.T) {
	dir := t.TempDir()

	_, err := GenerateSecurityCredential("secret", filepath.Join(dir, "missing.cer"))
	assert.Error(t, err)

	garbage := filepath.Join(dir, "garbage.cer")
	require.NoError(t, os.WriteFile(garbage, []byte("not a certificate"), 0o600))
	_, err = GenerateSecurityCredential("secret", garbage)
	assert.Error(t, err)

	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	template := &x509.Certificate{
		SerialNumber: big.NewInt(3),
		Subject:      pkix.Name{CommonName: "ec"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &ecKey.PublicKey, ecKey)
	require.NoError(t, err)
	ecPath := filepath.Join(dir, "ec.der")
	require.NoError(t, os.WriteFile(ecPath, der, 0o600))

	_, err = GenerateSecurityCredential("secret", ecPath)
	assert.ErrorContains(t, err, "RSA")
}

func TestTimestampAndPassword(t *testing.T) {
	ts := Timestamp(time.Date(2024, 3, 5, 7, 8, 9, 0, time.UTC))
	assert.Equal(t, "20240305070809", ts)

	eat := time.FixedZone("EAT", 3*60*60)
	assert.Equal(t, "20240305070809", Timestamp(time.Date(2024, 3, 5, 10, 8, 9, 0, eat)))

	assert.Equal(t,
		base64.StdEncoding.EncodeToString([]byte("174379passkey20240305070809")),
		STKPassword("174379", "passkey", ts))
}
