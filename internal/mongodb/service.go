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

package mongodb

import (
	"context"
	"fmt"
	"time"

	"mpesa-gateway-go/internal/models"
	"mpesa-gateway-go/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.LedgerStore.
var _ store.LedgerStore = (*Service)(nil)

const (
	collectionUsers           = "users"
	collectionDeposits        = "deposits"
	collectionWithdrawals     = "withdrawals"
	collectionBalanceEntries  = "balance_entries"
	collectionOfflinePayments = "offline_payments"

	disconnectTimeout = 10 * time.Second
)

// Service is the document-store ledger. Balances are Decimal128 and move
// only through $inc.
type Service struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewService(ctx context.Context, cfg models.MongoConfig) (*Service, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongo uri cannot be empty")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongo database cannot be empty")
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Connecting to MongoDB", zap.String("database", cfg.Database))
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("unable to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("unable to ping mongo: %w", err)
	}

	service := &Service{client: client, db: client.Database(cfg.Database)}
	if err := service.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	zap.L().Info("MongoDB ledger initialized successfully")
	return service, nil
}

// EnsureIndexes creates the correlation lookups and the reference dedup index
func (s *Service) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		collectionUsers: {
			{Keys: bson.D{{Key: "merchant_request_id", Value: 1}}},
			{Keys: bson.D{{Key: "originator_conversation_id", Value: 1}}},
		},
		collectionDeposits: {
			{Keys: bson.D{{Key: "phone", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		collectionWithdrawals: {
			{Keys: bson.D{{Key: "phone", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		collectionBalanceEntries: {
			{Keys: bson.D{{Key: "reference", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "phone", Value: 1}, {Key: "created_at", Value: -1}}},
		},
		collectionOfflinePayments: {
			{Keys: bson.D{{Key: "trans_id", Value: 1}}},
		},
	}

	for name, specs := range indexes {
		if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, specs); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func (s *Service) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), disconnectTimeout)
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		zap.L().Warn("Failed to disconnect from MongoDB", zap.Error(err))
	}
}

func (s *Service) users() *mongo.Collection       { return s.db.Collection(collectionUsers) }
func (s *Service) deposits() *mongo.Collection    { return s.db.Collection(collectionDeposits) }
func (s *Service) withdrawals() *mongo.Collection { return s.db.Collection(collectionWithdrawals) }
func (s *Service) entries() *mongo.Collection     { return s.db.Collection(collectionBalanceEntries) }
func (s *Service) offline() *mongo.Collection     { return s.db.Collection(collectionOfflinePayments) }
