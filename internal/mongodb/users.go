package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mpesa-gateway-go/internal/models"
	"mpesa-gateway-go/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func (s *Service) GetUsers(ctx context.Context) ([]models.User, error) {
	cursor, err := s.users().Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("unable to query users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	for cursor.Next(ctx) {
		var doc userDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("unable to decode user: %w", err)
		}
		user, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}

	zap.L().Info("Retrieved users", zap.Int("count", len(users)))
	return users, nil
}

func (s *Service) GetUser(ctx context.Context, phone string) (*models.User, error) {
	return s.findUser(ctx, bson.M{"_id": phone}, phone)
}

func (s *Service) FindUserByMerchantRequestID(ctx context.Context, merchantRequestId string) (*models.User, error) {
	if merchantRequestId == "" {
		return nil, store.ErrUserNotFound
	}
	return s.findUser(ctx, bson.M{"merchant_request_id": merchantRequestId}, merchantRequestId)
}

func (s *Service) FindUserByOriginatorConversationID(ctx context.Context, originatorConversationId string) (*models.User, error) {
	if originatorConversationId == "" {
		return nil, store.ErrUserNotFound
	}
	return s.findUser(ctx, bson.M{"originator_conversation_id": originatorConversationId}, originatorConversationId)
}

func (s *Service) findUser(ctx context.Context, filter bson.M, key string) (*models.User, error) {
	var doc userDocument
	if err := s.users().FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", store.ErrUserNotFound, key)
		}
		return nil, fmt.Errorf("unable to query user: %w", err)
	}
	return doc.toModel()
}

func (s *Service) UpsertDepositCorrelation(ctx context.Context, phone, merchantRequestId string) error {
	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"merchant_request_id": merchantRequestId,
			"updated_at":          now,
		},
		"$setOnInsert": bson.M{
			"balance":                    primitive.NewDecimal128(0, 0),
			"originator_conversation_id": "",
			"version":                    int64(1),
			"created_at":                 now,
		},
	}

	_, err := s.users().UpdateOne(ctx, bson.M{"_id": phone}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("unable to upsert user: %w", err)
	}
	return nil
}

func (s *Service) SetWithdrawalCorrelation(ctx context.Context, phone, originatorConversationId string) error {
	update := bson.M{"$set": bson.M{
		"originator_conversation_id": originatorConversationId,
		"updated_at":                 time.Now().UTC(),
	}}

	result, err := s.users().UpdateOne(ctx, bson.M{"_id": phone}, update)
	if err != nil {
		return fmt.Errorf("unable to update user: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", store.ErrUserNotFound, phone)
	}
	return nil
}
