// Package darajatest provides a fake Daraja API and test certificates.
package darajatest

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

// Provider paths served by Server
const (
	PathToken             = "/oauth/v1/generate"
	PathSTKPush           = "/mpesa/stkpush/v1/processrequest"
	PathB2CPayment        = "/mpesa/b2c/v3/paymentrequest"
	PathReversal          = "/mpesa/reversal/v1/request"
	PathTransactionStatus = "/mpesa/transactionstatus/v1/query"

	AccessToken = "test-access-token"
)

type reply struct {
	status int
	body   any
}

// Request is one call received by Server
type Request struct {
	Path          string
	Authorization string
	Body          map[string]any
}

// Server is an httptest server answering like the Daraja sandbox
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	replies  map[string]reply
	requests []Request
}

// NewServer starts a fake provider that accepts every request
func NewServer(t testing.TB) *Server {
	t.Helper()

	s := &Server{replies: map[string]reply{
		PathToken: {http.StatusOK, map[string]any{"access_token": AccessToken, "expires_in": "3599"}},
		PathSTKPush: {http.StatusOK, map[string]any{
			"MerchantRequestID":   "m-1",
			"CheckoutRequestID":   "ws_CO_191220191020363925",
			"ResponseCode":        "0",
			"ResponseDescription": "Success. Request accepted for processing",
			"CustomerMessage":     "Success. Request accepted for processing",
		}},
		PathB2CPayment: {http.StatusOK, map[string]any{
			"ConversationID":      "AG_20191219_00005797af5d7d75f652",
			"ResponseCode":        "0",
			"ResponseDescription": "Accept the service request successfully.",
		}},
		PathReversal: {http.StatusOK, map[string]any{
			"OriginatorConversationID": "71840-27539181-07",
			"ConversationID":           "AG_20210709_12346c8e6f8858d7b70a",
			"ResponseCode":             "0",
			"ResponseDescription":      "Accept the service request successfully.",
		}},
		PathTransactionStatus: {http.StatusOK, map[string]any{
			"OriginatorConversationID": "1236-7134259-1",
			"ConversationID":           "AG_20210709_1234409f86436c583e3f",
			"ResponseCode":             "0",
			"ResponseDescription":      "Accept the service request successfully.",
		}},
	}}

	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// Respond overrides the reply for path
func (s *Server) Respond(path string, status int, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies[path] = reply{status: status, body: body}
}

// Requests returns the calls received on path
func (s *Server) Requests(path string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Request
	for _, r := range s.requests {
		if r.Path == path {
			out = append(out, r)
		}
	}
	return out
}

// Calls counts every request received, token requests included
func (s *Server) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	record := Request{Path: r.URL.Path, Authorization: r.Header.Get("Authorization")}
	if raw, err := io.ReadAll(r.Body); err == nil && len(raw) > 0 {
		_ = json.Unmarshal(raw, &record.Body)
	}

	s.mu.Lock()
	s.requests = append(s.requests, record)
	rep, ok := s.replies[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	// Echo the caller's originator id the way the provider does
	body := rep.body
	if m, isMap := body.(map[string]any); isMap && r.URL.Path == PathB2CPayment && record.Body != nil {
		echoed := make(map[string]any, len(m)+1)
		for k, v := range m {
			echoed[k] = v
		}
		if _, set := echoed["OriginatorConversationID"]; !set {
			echoed["OriginatorConversationID"] = record.Body["OriginatorConversationID"]
		}
		body = echoed
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rep.status)
	if text, isString := body.(string); isString {
		_, _ = io.WriteString(w, text)
		return
	}
	_ = json.NewEncoder(w).Encode(body)
}

// WriteCertificate writes a self-signed RSA certificate as PEM and returns
// its path with the private key that decrypts credentials made from it
func WriteCertificate(t testing.TB) (string, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "sandbox.safaricom.co.ke"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create certificate: %v", err)
	}

	path := filepath.Join(t.TempDir(), "SandboxCertificate.cer")
	pemBytes := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
		t.Fatalf("write certificate: %v", err)
	}
	return path, key
}

// BearerToken strips the scheme from an Authorization header
func BearerToken(header string) string {
	return strings.TrimPrefix(header, "Bearer ")
}
