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
	"errors"

	"mpesa-gateway-go/internal/common"
	"mpesa-gateway-go/internal/models"
	"mpesa-gateway-go/internal/store"

	"go.uber.org/zap"
)

// GetBalance returns the current balance for the user owning phoneNumber
func (s *GatewayService) GetBalance(ctx context.Context, phoneNumber string) (*models.BalanceResponse, error) {
	phone, err := common.NormalizePhone(phoneNumber)
	if err != nil {
		return nil, badRequest(err.Error())
	}

	user, err := s.ledger.GetUser(ctx, phone)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, notFound(msgUserNotFound)
		}
		zap.L().Error("Failed to get user balance", zap.String("phone", phone), zap.Error(err))
		return nil, internalError(msgInternal, err)
	}

	return &models.BalanceResponse{Balance: user.Balance}, nil
}

// GetTransactionHistory returns paginated balance entries for a user, newest first
func (s *GatewayService) GetTransactionHistory(ctx context.Context, phoneNumber string, limit, offset int) ([]models.BalanceEntry, error) {
	phone, err := common.NormalizePhone(phoneNumber)
	if err != nil {
		return nil, badRequest(err.Error())
	}

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	if _, err := s.ledger.GetUser(ctx, phone); err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return nil, notFound(msgUserNotFound)
		}
		zap.L().Error("User lookup failed for history", zap.String("phone", phone), zap.Error(err))
		return nil, internalError(msgInternal, err)
	}

	entries, err := s.ledger.GetBalanceHistory(ctx, phone, limit, offset)
	if err != nil {
		zap.L().Error("Failed to get transaction history",
			zap.String("phone", phone),
			zap.Error(err))
		return nil, internalError(msgInternal, err)
	}
	if entries == nil {
		entries = []models.BalanceEntry{}
	}

	return entries, nil
}
