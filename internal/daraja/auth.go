package daraja

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"net/http"
	"os"
	"time"
)

const timestampLayout = "20060102150405"

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   string `json:"expires_in"`
}

// GenerateToken fetches a fresh OAuth access token. Tokens are not cached.
func (s *Service) GenerateToken(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+pathToken, nil)
	if err != nil {
		return "", fmt.Errorf("generate token: unable to create request: %w", err)
	}
	req.SetBasicAuth(s.cfg.ConsumerKey, s.cfg.ConsumerSecret)

	var token tokenResponse
	if err := s.do(req, "generate token", &token); err != nil {
		return "", err
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("generate token: response carried no access token")
	}
	return token.AccessToken, nil
}

// GenerateSecurityCredential encrypts the initiator password under the
// provider certificate's RSA key (PKCS#1 v1.5) and base64-encodes it
func GenerateSecurityCredential(password, certPath string) (string, error) {
	certBytes, err := os.ReadFile(certPath)
	if err != nil {
		return "", fmt.Errorf("failed to read certificate: %w", err)
	}

	der := certBytes
	if block, _ := pem.Decode(certBytes); block != nil {
		der = block.Bytes
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return "", fmt.Errorf("failed to parse certificate: %w", err)
	}

	publicKey, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return "", fmt.Errorf("certificate does not carry an RSA public key")
	}

	encrypted, err := rsa.EncryptPKCS1v15(rand.Reader, publicKey, []byte(password))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt credential: %w", err)
	}

	return base64.StdEncoding.EncodeToString(encrypted), nil
}

// Timestamp formats t as YYYYMMDDHHMMSS in UTC
func Timestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// STKPassword is base64(shortcode + passkey + timestamp)
func STKPassword(shortCode, passkey, timestamp string) string {
	return base64.StdEncoding.EncodeToString([]byte(shortCode + passkey + timestamp))
}
