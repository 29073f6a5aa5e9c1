package api

import (
	"context"
	"encoding/json"

	"mpesa-gateway-go/internal/models"

	"go.uber.org/zap"
)

// RecordOfflinePayment stores a C2B confirmation as received. The provider is
// always told the confirmation succeeded.
func (s *GatewayService) RecordOfflinePayment(ctx context.Context, payload []byte) models.ResultAck {
	var confirmation struct {
		TransID string `json:"TransID"`
	}
	if err := json.Unmarshal(payload, &confirmation); err != nil {
		zap.L().Warn("Confirmation payload is not a JSON object", zap.Error(err))
	}

	if _, err := s.ledger.RecordOfflinePayment(ctx, confirmation.TransID, payload); err != nil {
		zap.L().Error("Failed to record offline payment",
			zap.String("trans_id", confirmation.TransID),
			zap.Error(err))
	}

	return models.ResultAck{ResultCode: models.NewCode(0), ResultDesc: "Success"}
}
