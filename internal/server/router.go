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
package server

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"mpesa-gateway-go/internal/api"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const banner = "M-Pesa STK PUSH"

// NewRouter mounts the gateway routes under /api and wraps them with request
// logging, CORS and panic recovery
func NewRouter(gateway *api.GatewayService, allowlist []string) http.Handler {
	h := &handler{gateway: gateway}

	router := mux.NewRouter()
	router.HandleFunc("/", h.banner).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/health", h.health).Methods(http.MethodGet)

	r := router.PathPrefix("/api").Subrouter()

	// Deposits
	r.HandleFunc("/pay", h.pay).Methods(http.MethodPost)
	r.HandleFunc("/callback", h.callback).Methods(http.MethodPost)

	// Offline (C2B) payments
	r.Handle("/validation", AllowlistMiddleware(allowlist)(http.HandlerFunc(h.validation))).Methods(http.MethodPost)
	r.HandleFunc("/confirmation", h.confirmation).Methods(http.MethodPost)

	// Withdrawals
	r.HandleFunc("/withdraw", h.withdraw).Methods(http.MethodPost)
	for _, path := range []string{"/result", "/withdraw/results", "/reversal/results", "/transaction-status/results"} {
		r.HandleFunc(path, h.result).Methods(http.MethodPost)
	}
	r.HandleFunc("/timeout", h.timeout).Methods(http.MethodPost)

	// Provider queries
	r.HandleFunc("/reversal", h.reversal).Methods(http.MethodPost)
	r.HandleFunc("/transaction-status", h.transactionStatus).Methods(http.MethodPost)

	// Balances
	r.HandleFunc("/balance", h.balance).Methods(http.MethodGet)
	r.HandleFunc("/history", h.history).Methods(http.MethodGet)

	var wrapped http.Handler = router
	wrapped = handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)(wrapped)
	wrapped = handlers.CustomLoggingHandler(io.Discard, wrapped, logRequest)
	wrapped = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(true),
	)(wrapped)
	return wrapped
}

func logRequest(_ io.Writer, params handlers.LogFormatterParams) {
	zap.L().Info("HTTP request",
		zap.String("method", params.Request.Method),
		zap.String("path", params.URL.Path),
		zap.Int("status", params.StatusCode),
		zap.Int("size", params.Size),
		zap.Duration("duration", time.Since(params.TimeStamp)))
}

// recoveryLogger routes recovered panics into zap
type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	zap.L().Error("Recovered from panic", zap.String("panic", fmt.Sprint(v...)))
}
