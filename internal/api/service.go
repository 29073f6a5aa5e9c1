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
package api

import (
	"context"
	"fmt"

	"mpesa-gateway-go/internal/models"
	"mpesa-gateway-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Provider is the subset of the Daraja client the gateway drives
type Provider interface {
	STKPush(ctx context.Context, phone string, amount decimal.Decimal) (*models.STKPushResponse, error)
	B2CPayment(ctx context.Context, phone string, amount decimal.Decimal, originatorConversationId string) (*models.B2CResponse, error)
	Reversal(ctx context.Context, transactionId string, amount decimal.Decimal) (map[string]any, error)
	TransactionStatus(ctx context.Context, transactionId string) (map[string]any, error)
}

// GatewayService runs the deposit, withdrawal and webhook flows against a ledger
type GatewayService struct {
	ledger   store.LedgerStore
	provider Provider
	newId    func() string
}

func NewGatewayService(ledger store.LedgerStore, provider Provider) *GatewayService {
	return &GatewayService{
		ledger:   ledger,
		provider: provider,
		newId:    uuid.NewString,
	}
}

func (s *GatewayService) HealthCheck(ctx context.Context) error {
	_, err := s.ledger.GetUsers(ctx)
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
