package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mpesa-gateway-go/internal/models"
	"mpesa-gateway-go/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// AdjustBalance claims the reference with an entry insert, then applies $inc.
// The unique reference index is what rejects a replayed adjustment.
func (s *Service) AdjustBalance(ctx context.Context, phone string, delta decimal.Decimal, kind, reference string) (decimal.Decimal, error) {
	if reference == "" {
		return decimal.Zero, fmt.Errorf("balance adjustment requires a reference")
	}

	amount, err := toDecimal128(delta)
	if err != nil {
		return decimal.Zero, err
	}

	now := time.Now().UTC()
	entry := entryDocument{
		Id:        uuid.New().String(),
		Phone:     phone,
		Kind:      kind,
		Amount:    amount,
		Reference: reference,
		CreatedAt: now,
	}
	if _, err := s.entries().InsertOne(ctx, entry); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			zap.L().Warn("Duplicate balance reference detected, skipping", zap.String("reference", reference))
			return decimal.Zero, fmt.Errorf("%w: reference %s already applied", store.ErrDuplicateTransaction, reference)
		}
		return decimal.Zero, fmt.Errorf("failed to insert balance entry: %w", err)
	}

	var user userDocument
	err = s.users().FindOneAndUpdate(ctx,
		bson.M{"_id": phone},
		bson.M{
			"$inc": bson.M{"balance": amount, "version": int64(1)},
			"$set": bson.M{"updated_at": now},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&user)
	if err != nil {
		if _, delErr := s.entries().DeleteOne(ctx, bson.M{"_id": entry.Id}); delErr != nil {
			zap.L().Error("Failed to release balance reference", zap.String("reference", reference), zap.Error(delErr))
		}
		if errors.Is(err, mongo.ErrNoDocuments) {
			return decimal.Zero, fmt.Errorf("adjust balance for %s: %w", phone, store.ErrUserNotFound)
		}
		return decimal.Zero, fmt.Errorf("failed to update balance: %w", err)
	}

	newBalance, err := fromDecimal128(user.Balance)
	if err != nil {
		return decimal.Zero, err
	}
	before, err := toDecimal128(newBalance.Sub(delta))
	if err != nil {
		return decimal.Zero, err
	}

	_, err = s.entries().UpdateOne(ctx, bson.M{"_id": entry.Id}, bson.M{"$set": bson.M{
		"balance_before": before,
		"balance_after":  user.Balance,
	}})
	if err != nil {
		zap.L().Warn("Failed to annotate balance entry", zap.String("entry_id", entry.Id), zap.Error(err))
	}

	zap.L().Info("Balance adjustment processed successfully",
		zap.String("entry_id", entry.Id),
		zap.String("phone", phone),
		zap.String("kind", kind),
		zap.String("amount", delta.String()),
		zap.String("new_balance", newBalance.String()))
	return newBalance, nil
}

func (s *Service) GetBalanceHistory(ctx context.Context, phone string, limit, offset int) ([]models.BalanceEntry, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(offset)).
		SetLimit(int64(limit))

	cursor, err := s.entries().Find(ctx, bson.M{"phone": phone}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance history: %w", err)
	}
	defer cursor.Close(ctx)

	var entries []models.BalanceEntry
	for cursor.Next(ctx) {
		var doc entryDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode balance entry: %w", err)
		}
		entry, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		entries = append(entries, *entry)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating balance entries: %w", err)
	}
	return entries, nil
}

// ReconcileUserBalance sums the user's entries server-side and compares to the balance
func (s *Service) ReconcileUserBalance(ctx context.Context, phone string) error {
	zap.L().Info("Reconciling balance", zap.String("phone", phone))

	user, err := s.GetUser(ctx, phone)
	if err != nil {
		return fmt.Errorf("failed to get current balance: %w", err)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"phone": phone}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$amount"}}}},
	}
	cursor, err := s.entries().Aggregate(ctx, pipeline)
	if err != nil {
		return fmt.Errorf("failed to calculate balance from entries: %w", err)
	}
	defer cursor.Close(ctx)

	calculated := decimal.Zero
	if cursor.Next(ctx) {
		var result struct {
			Total primitive.Decimal128 `bson:"total"`
		}
		if err := cursor.Decode(&result); err != nil {
			return fmt.Errorf("failed to decode entry total: %w", err)
		}
		calculated, err = fromDecimal128(result.Total)
		if err != nil {
			return err
		}
	}
	if err := cursor.Err(); err != nil {
		return fmt.Errorf("error iterating entry total: %w", err)
	}

	if !user.Balance.Equal(calculated) {
		zap.L().Error("Balance reconciliation failed",
			zap.String("phone", phone),
			zap.String("current_balance", user.Balance.String()),
			zap.String("calculated_balance", calculated.String()))
		return fmt.Errorf("balance mismatch: current=%s, calculated=%s", user.Balance.String(), calculated.String())
	}

	zap.L().Info("Balance reconciliation successful", zap.String("phone", phone), zap.String("balance", user.Balance.String()))
	return nil
}

func (s *Service) RecordOfflinePayment(ctx context.Context, transId string, payload []byte) (*models.OfflinePayment, error) {
	if payload == nil {
		payload = []byte{}
	}

	doc := newOfflineDocument(uuid.New().String(), transId, payload, time.Now().UTC())
	if _, err := s.offline().InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("unable to insert offline payment: %w", err)
	}

	zap.L().Info("Offline payment recorded", zap.String("id", doc.Id), zap.String("trans_id", transId))
	return &models.OfflinePayment{
		Id:         doc.Id,
		TransId:    doc.TransId,
		Payload:    doc.Payload,
		ReceivedAt: doc.ReceivedAt,
	}, nil
}
