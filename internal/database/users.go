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

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mpesa-gateway-go/internal/models"
	"mpesa-gateway-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var balanceStr string
	err := row.Scan(&user.Phone, &balanceStr, &user.MerchantRequestId, &user.OriginatorConversationId,
		&user.Version, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, err
	}

	user.Balance, err = decimal.NewFromString(balanceStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse balance '%s': %w", balanceStr, err)
	}
	return &user, nil
}

func (s *Service) GetUsers(ctx context.Context) ([]models.User, error) {
	zap.L().Debug("Querying users")

	rows, err := s.db.QueryContext(ctx, queryGetUsers)
	if err != nil {
		zap.L().Error("Failed to query users", zap.Error(err))
		return nil, fmt.Errorf("unable to query users: %w", err)
	}
	defer closeRows(rows)

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			zap.L().Error("Failed to scan user row", zap.Error(err))
			return nil, fmt.Errorf("unable to scan user row: %w", err)
		}

		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		zap.L().Error("Error during user row iteration", zap.Error(err))
		return nil, fmt.Errorf("error iterating user rows: %w", err)
	}

	zap.L().Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

func (s *Service) GetUser(ctx context.Context, phone string) (*models.User, error) {
	zap.L().Debug("Querying user by phone", zap.String("phone", phone))
	return s.queryUser(ctx, queryGetUserByPhone, phone)
}

func (s *Service) FindUserByMerchantRequestID(ctx context.Context, merchantRequestId string) (*models.User, error) {
	if merchantRequestId == "" {
		return nil, store.ErrUserNotFound
	}
	return s.queryUser(ctx, queryFindUserByMerchantRequestId, merchantRequestId)
}

func (s *Service) FindUserByOriginatorConversationID(ctx context.Context, originatorConversationId string) (*models.User, error) {
	if originatorConversationId == "" {
		return nil, store.ErrUserNotFound
	}
	return s.queryUser(ctx, queryFindUserByOriginatorConversationId, originatorConversationId)
}

func (s *Service) queryUser(ctx context.Context, query, arg string) (*models.User, error) {
	user, err := scanUser(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, arg)
		}
		zap.L().Error("Failed to query user", zap.String("key", arg), zap.Error(err))
		return nil, fmt.Errorf("unable to query user: %w", err)
	}
	return user, nil
}

// UpsertDepositCorrelation creates the user on first deposit and records the
// merchant request ID the next callback will carry
func (s *Service) UpsertDepositCorrelation(ctx context.Context, phone, merchantRequestId string) error {
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx, queryUpsertDepositCorrelation, phone, merchantRequestId, now, now); err != nil {
		zap.L().Error("Failed to upsert user", zap.String("phone", phone), zap.Error(err))
		return fmt.Errorf("unable to upsert user: %w", err)
	}

	zap.L().Debug("Recorded deposit correlation",
		zap.String("phone", phone),
		zap.String("merchant_request_id", merchantRequestId))
	return nil
}

func (s *Service) SetWithdrawalCorrelation(ctx context.Context, phone, originatorConversationId string) error {
	result, err := s.db.ExecContext(ctx, querySetWithdrawalCorrelation, originatorConversationId, time.Now().UTC(), phone)
	if err != nil {
		return fmt.Errorf("unable to update user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("unable to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%w: %s", store.ErrUserNotFound, phone)
	}
	return nil
}
