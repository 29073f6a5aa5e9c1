package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mpesa-gateway-go/internal/models"
	"mpesa-gateway-go/internal/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func (s *Service) CreateDeposit(ctx context.Context, params store.CreateDepositParams) error {
	amount, err := toDecimal128(params.Amount)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = s.deposits().InsertOne(ctx, depositDocument{
		MerchantRequestId: params.MerchantRequestId,
		CheckoutRequestId: params.CheckoutRequestId,
		Phone:             params.Phone,
		Amount:            amount,
		Status:            models.StatusPending,
		CreatedAt:         now,
		UpdatedAt:         now,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: deposit %s", store.ErrDuplicateTransaction, params.MerchantRequestId)
		}
		return fmt.Errorf("unable to insert deposit: %w", err)
	}
	return nil
}

func (s *Service) GetDeposit(ctx context.Context, merchantRequestId string) (*models.Deposit, error) {
	var doc depositDocument
	if err := s.deposits().FindOne(ctx, bson.M{"_id": merchantRequestId}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: deposit %s", store.ErrTransactionNotFound, merchantRequestId)
		}
		return nil, fmt.Errorf("unable to query deposit: %w", err)
	}
	return doc.toModel()
}

func (s *Service) SettleDeposit(ctx context.Context, params store.SettleDepositParams) (bool, error) {
	update := bson.M{"$set": bson.M{
		"status":           params.Status,
		"result_code":      params.ResultCode,
		"result_desc":      params.ResultDesc,
		"receipt_number":   params.ReceiptNumber,
		"transaction_date": params.TransactionDate,
		"updated_at":       time.Now().UTC(),
	}}
	return s.settle(ctx, s.deposits(), params.MerchantRequestId, update)
}

func (s *Service) CreateWithdrawal(ctx context.Context, params store.CreateWithdrawalParams) error {
	amount, err := toDecimal128(params.Amount)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = s.withdrawals().InsertOne(ctx, withdrawalDocument{
		OriginatorConversationId: params.OriginatorConversationId,
		ConversationId:           params.ConversationId,
		Phone:                    params.Phone,
		Amount:                   amount,
		Status:                   models.StatusPending,
		CreatedAt:                now,
		UpdatedAt:                now,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: withdrawal %s", store.ErrDuplicateTransaction, params.OriginatorConversationId)
		}
		return fmt.Errorf("unable to insert withdrawal: %w", err)
	}
	return nil
}

func (s *Service) GetWithdrawal(ctx context.Context, originatorConversationId string) (*models.Withdrawal, error) {
	var doc withdrawalDocument
	if err := s.withdrawals().FindOne(ctx, bson.M{"_id": originatorConversationId}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: withdrawal %s", store.ErrTransactionNotFound, originatorConversationId)
		}
		return nil, fmt.Errorf("unable to query withdrawal: %w", err)
	}
	return doc.toModel()
}

func (s *Service) SettleWithdrawal(ctx context.Context, params store.SettleWithdrawalParams) (bool, error) {
	update := bson.M{"$set": bson.M{
		"status":         params.Status,
		"result_code":    params.ResultCode,
		"result_desc":    params.ResultDesc,
		"transaction_id": params.TransactionId,
		"receipt_number": params.ReceiptNumber,
		"updated_at":     time.Now().UTC(),
	}}
	return s.settle(ctx, s.withdrawals(), params.OriginatorConversationId, update)
}

// settle applies update only while the record is pending
func (s *Service) settle(ctx context.Context, coll *mongo.Collection, id string, update bson.M) (bool, error) {
	result, err := coll.UpdateOne(ctx, bson.M{"_id": id, "status": models.StatusPending}, update)
	if err != nil {
		return false, fmt.Errorf("unable to settle %s: %w", id, err)
	}
	if result.MatchedCount > 0 {
		return true, nil
	}

	count, err := coll.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("unable to check %s: %w", id, err)
	}
	if count == 0 {
		return false, fmt.Errorf("%w: %s", store.ErrTransactionNotFound, id)
	}

	zap.L().Warn("Transaction already settled, ignoring", zap.String("key", id))
	return false, nil
}
