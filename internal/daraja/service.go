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

package daraja

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"mpesa-gateway-go/internal/models"

	"go.uber.org/zap"
	"golang.org/x/net/http2"
)

const (
	pathToken             = "/oauth/v1/generate?grant_type=client_credentials"
	pathSTKPush           = "/mpesa/stkpush/v1/processrequest"
	pathB2CPayment        = "/mpesa/b2c/v3/paymentrequest"
	pathReversal          = "/mpesa/reversal/v1/request"
	pathTransactionStatus = "/mpesa/transactionstatus/v1/query"

	maxErrorBodyBytes = 4096
)

// Service talks to the Safaricom Daraja API
type Service struct {
	cfg        models.DarajaConfig
	httpClient http.Client
}

// ProviderError is a non-2xx reply from Daraja. The body is for logs only.
type ProviderError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: provider returned HTTP %d", e.Operation, e.StatusCode)
}

func NewService(cfg models.DarajaConfig) (*Service, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("daraja base url cannot be empty")
	}

	httpClient, err := createCustomHttpClient(cfg.HTTPTimeout)
	if err != nil {
		return nil, fmt.Errorf("unable to create http client: %w", err)
	}

	return &Service{cfg: cfg, httpClient: httpClient}, nil
}

func createCustomHttpClient(timeout time.Duration) (http.Client, error) {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	tr := &http.Transport{
		ResponseHeaderTimeout: 30 * time.Second,
		Proxy:                 http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			KeepAlive: 30 * time.Second,
			Timeout:   15 * time.Second,
		}).DialContext,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConnsPerHost:   5,
		ExpectContinueTimeout: 5 * time.Second,
	}

	if err := http2.ConfigureTransport(tr); err != nil {
		return http.Client{}, err
	}

	return http.Client{
		Transport: tr,
		Timeout:   timeout,
	}, nil
}

// callbackURL joins the public callback base with a route
func (s *Service) callbackURL(path string) string {
	return s.cfg.CallbackBaseURL + path
}

// postJSON sends an authorized request and decodes a 2xx reply into out
func (s *Service) postJSON(ctx context.Context, operation, path, token string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: unable to marshal request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: unable to create request: %w", operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	return s.do(req, operation, out)
}

func (s *Service) do(req *http.Request, operation string, out any) error {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		zap.L().Error("Daraja request failed",
			zap.String("operation", operation),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)))
		return &ProviderError{Operation: operation, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: unable to decode response: %w", operation, err)
	}
	return nil
}
