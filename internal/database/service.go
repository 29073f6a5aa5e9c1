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

	"mpesa-gateway-go/internal/models"
	"mpesa-gateway-go/internal/store"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.LedgerStore.
var _ store.LedgerStore = (*Service)(nil)

type Service struct {
	db        *sql.DB
	subledger *SubledgerService
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	// Validate configuration
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite database", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := newService(db)
	if err := service.initSchema(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Database service initialized successfully")
	return service, nil
}

func newService(db *sql.DB) *Service {
	return &Service{db: db, subledger: NewSubledgerService(db)}
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		zap.L().Warn("Failed to close database connection", zap.Error(err))
	}
}

func (s *Service) initSchema(ctx context.Context) error {
	schema := `
	-- Users keyed by canonical phone number; balance is a decimal string
	CREATE TABLE IF NOT EXISTS users (
		phone TEXT PRIMARY KEY,
		balance TEXT NOT NULL DEFAULT '0',
		merchant_request_id TEXT NOT NULL DEFAULT '',
		originator_conversation_id TEXT NOT NULL DEFAULT '',
		version INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_users_merchant_request_id ON users(merchant_request_id);
	CREATE INDEX IF NOT EXISTS idx_users_originator_conversation_id ON users(originator_conversation_id);

	-- STK Push deposits
	CREATE TABLE IF NOT EXISTS deposits (
		merchant_request_id TEXT PRIMARY KEY,
		checkout_request_id TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL,
		amount TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		result_code INTEGER NOT NULL DEFAULT 0,
		result_desc TEXT NOT NULL DEFAULT '',
		receipt_number TEXT NOT NULL DEFAULT '',
		transaction_date TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_deposits_phone ON deposits(phone);
	CREATE INDEX IF NOT EXISTS idx_deposits_status ON deposits(status);

	-- B2C withdrawals
	CREATE TABLE IF NOT EXISTS withdrawals (
		originator_conversation_id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL,
		amount TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		result_code INTEGER NOT NULL DEFAULT 0,
		result_desc TEXT NOT NULL DEFAULT '',
		transaction_id TEXT NOT NULL DEFAULT '',
		receipt_number TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_withdrawals_phone ON withdrawals(phone);
	CREATE INDEX IF NOT EXISTS idx_withdrawals_status ON withdrawals(status);

	-- Unsolicited C2B confirmations
	CREATE TABLE IF NOT EXISTS offline_payments (
		id TEXT PRIMARY KEY,
		trans_id TEXT NOT NULL DEFAULT '',
		payload BLOB NOT NULL,
		received_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_offline_payments_trans_id ON offline_payments(trans_id);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return err
	}

	return s.subledger.InitSchema(ctx)
}

// Subledger convenience methods

func (s *Service) AdjustBalance(ctx context.Context, phone string, delta decimal.Decimal, kind, reference string) (decimal.Decimal, error) {
	entry, err := s.subledger.ProcessTransaction(ctx, ProcessTransactionParams{
		Phone:     phone,
		Kind:      kind,
		Amount:    delta,
		Reference: reference,
	})
	if err != nil {
		return decimal.Zero, err
	}
	return entry.BalanceAfter, nil
}

func (s *Service) GetBalanceHistory(ctx context.Context, phone string, limit, offset int) ([]models.BalanceEntry, error) {
	return s.subledger.GetBalanceHistory(ctx, phone, limit, offset)
}

func (s *Service) ReconcileUserBalance(ctx context.Context, phone string) error {
	return s.subledger.ReconcileBalance(ctx, phone)
}

// isConstraintViolation reports whether err is a SQLite uniqueness or key violation
func isConstraintViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		zap.L().Warn("Failed to close rows", zap.Error(err))
	}
}
