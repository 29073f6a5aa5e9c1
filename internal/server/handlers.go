package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"mpesa-gateway-go/internal/api"
	"mpesa-gateway-go/internal/models"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

type handler struct {
	gateway *api.GatewayService
}

func (h *handler) banner(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, banner)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.gateway.HealthCheck(r.Context()); err != nil {
		zap.L().Error("Health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, models.ErrorResponse{Error: "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, models.StatusAck{Status: "ok"})
}

func (h *handler) pay(w http.ResponseWriter, r *http.Request) {
	var req models.DepositRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	ack, err := h.gateway.InitiateDeposit(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ack)
}

func (h *handler) callback(w http.ResponseWriter, r *http.Request) {
	var envelope models.STKCallbackEnvelope
	decodeWebhook(r, &envelope)
	writeJSON(w, http.StatusOK, h.gateway.HandleDepositCallback(r.Context(), envelope))
}

func (h *handler) validation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.ResultAck{ResultCode: models.NewCode(0), ResultDesc: "Accepted"})
}

func (h *handler) confirmation(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		zap.L().Warn("Failed to read confirmation body", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, h.gateway.RecordOfflinePayment(r.Context(), payload))
}

func (h *handler) withdraw(w http.ResponseWriter, r *http.Request) {
	var req models.WithdrawalRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	ack, err := h.gateway.InitiateWithdrawal(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ack)
}

func (h *handler) result(w http.ResponseWriter, r *http.Request) {
	var envelope models.ResultEnvelope
	decodeWebhook(r, &envelope)
	writeJSON(w, http.StatusOK, h.gateway.HandleWithdrawalResult(r.Context(), envelope))
}

func (h *handler) timeout(w http.ResponseWriter, r *http.Request) {
	var envelope models.ResultEnvelope
	decodeWebhook(r, &envelope)
	writeJSON(w, http.StatusOK, h.gateway.HandleWithdrawalTimeout(r.Context(), envelope))
}

func (h *handler) reversal(w http.ResponseWriter, r *http.Request) {
	var req models.ReversalRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	resp, err := h.gateway.RequestReversal(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) transactionStatus(w http.ResponseWriter, r *http.Request) {
	var req models.TransactionStatusRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	resp, err := h.gateway.QueryTransactionStatus(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) balance(w http.ResponseWriter, r *http.Request) {
	resp, err := h.gateway.GetBalance(r.Context(), r.URL.Query().Get("phoneNumber"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	limit, _ := strconv.Atoi(query.Get("limit"))
	offset, _ := strconv.Atoi(query.Get("offset"))

	entries, err := h.gateway.GetTransactionHistory(r.Context(), query.Get("phoneNumber"), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// decodeRequest reads a client JSON body, replying 400 when it is unreadable
func decodeRequest(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		zap.L().Info("Invalid request body", zap.String("path", r.URL.Path), zap.Error(err))
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid request body"})
		return false
	}
	return true
}

// decodeWebhook reads a provider payload; a malformed body leaves v zeroed so
// the webhook is still acknowledged
func decodeWebhook(r *http.Request, v any) {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v); err != nil {
		zap.L().Error("Malformed webhook payload", zap.String("path", r.URL.Path), zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("Failed to write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	var apiErr *api.Error
	if !errors.As(err, &apiErr) {
		zap.L().Error("Unhandled error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Internal server error"})
		return
	}
	writeJSON(w, apiErr.Status, models.ErrorResponse{Error: apiErr.Message})
}
