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

package common

import (
	"context"
	"fmt"

	"mpesa-gateway-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// UserInfo represents simplified user information for command-line utilities
type UserInfo struct {
	Phone   string
	Balance decimal.Decimal
}

// InitializeUsers retrieves users based on an optional phone filter.
// If phoneFilter is provided, it is normalized and a single user is returned.
// If phoneFilter is empty, returns all users.
func InitializeUsers(ctx context.Context, ledger store.LedgerStore, phoneFilter string, logger *zap.Logger) ([]UserInfo, error) {
	var users []UserInfo

	if phoneFilter != "" {
		phone, err := NormalizePhone(phoneFilter)
		if err != nil {
			return nil, err
		}
		logger.Info("Looking up user by phone", zap.String("phone", phone))
		user, err := ledger.GetUser(ctx, phone)
		if err != nil {
			return nil, fmt.Errorf("user not found: %w", err)
		}
		users = append(users, UserInfo{
			Phone:   user.Phone,
			Balance: user.Balance,
		})
	} else {
		allUsers, err := ledger.GetUsers(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get users: %w", err)
		}
		for _, u := range allUsers {
			users = append(users, UserInfo{
				Phone:   u.Phone,
				Balance: u.Balance,
			})
		}
	}

	logger.Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}
