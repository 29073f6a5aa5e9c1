package database

import (
	"context"
	"fmt"
	"time"

	"mpesa-gateway-go/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RecordOfflinePayment appends a C2B confirmation payload as received
func (s *Service) RecordOfflinePayment(ctx context.Context, transId string, payload []byte) (*models.OfflinePayment, error) {
	if payload == nil {
		payload = []byte{}
	}

	payment := &models.OfflinePayment{
		Id:         uuid.New().String(),
		TransId:    transId,
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, queryInsertOfflinePayment, payment.Id, payment.TransId, payment.Payload, payment.ReceivedAt)
	if err != nil {
		return nil, fmt.Errorf("unable to insert offline payment: %w", err)
	}

	zap.L().Info("Offline payment recorded", zap.String("id", payment.Id), zap.String("trans_id", transId))
	return payment, nil
}
