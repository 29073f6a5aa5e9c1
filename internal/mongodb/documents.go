package mongodb

import (
	"fmt"
	"time"

	"mpesa-gateway-go/internal/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userDocument struct {
	Phone                    string               `bson:"_id"`
	Balance                  primitive.Decimal128 `bson:"balance"`
	MerchantRequestId        string               `bson:"merchant_request_id"`
	OriginatorConversationId string               `bson:"originator_conversation_id"`
	Version                  int64                `bson:"version"`
	CreatedAt                time.Time            `bson:"created_at"`
	UpdatedAt                time.Time            `bson:"updated_at"`
}

func (d userDocument) toModel() (*models.User, error) {
	balance, err := fromDecimal128(d.Balance)
	if err != nil {
		return nil, err
	}
	return &models.User{
		Phone:                    d.Phone,
		Balance:                  balance,
		MerchantRequestId:        d.MerchantRequestId,
		OriginatorConversationId: d.OriginatorConversationId,
		Version:                  d.Version,
		CreatedAt:                d.CreatedAt,
		UpdatedAt:                d.UpdatedAt,
	}, nil
}

type depositDocument struct {
	MerchantRequestId string               `bson:"_id"`
	CheckoutRequestId string               `bson:"checkout_request_id"`
	Phone             string               `bson:"phone"`
	Amount            primitive.Decimal128 `bson:"amount"`
	Status            string               `bson:"status"`
	ResultCode        int                  `bson:"result_code"`
	ResultDesc        string               `bson:"result_desc"`
	ReceiptNumber     string               `bson:"receipt_number"`
	TransactionDate   string               `bson:"transaction_date"`
	CreatedAt         time.Time            `bson:"created_at"`
	UpdatedAt         time.Time            `bson:"updated_at"`
}

func (d depositDocument) toModel() (*models.Deposit, error) {
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return nil, err
	}
	return &models.Deposit{
		MerchantRequestId: d.MerchantRequestId,
		CheckoutRequestId: d.CheckoutRequestId,
		Phone:             d.Phone,
		Amount:            amount,
		Status:            d.Status,
		ResultCode:        d.ResultCode,
		ResultDesc:        d.ResultDesc,
		ReceiptNumber:     d.ReceiptNumber,
		TransactionDate:   d.TransactionDate,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}, nil
}

type withdrawalDocument struct {
	OriginatorConversationId string               `bson:"_id"`
	ConversationId           string               `bson:"conversation_id"`
	Phone                    string               `bson:"phone"`
	Amount                   primitive.Decimal128 `bson:"amount"`
	Status                   string               `bson:"status"`
	ResultCode               int                  `bson:"result_code"`
	ResultDesc               string               `bson:"result_desc"`
	TransactionId            string               `bson:"transaction_id"`
	ReceiptNumber            string               `bson:"receipt_number"`
	CreatedAt                time.Time            `bson:"created_at"`
	UpdatedAt                time.Time            `bson:"updated_at"`
}

func (d withdrawalDocument) toModel() (*models.Withdrawal, error) {
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return nil, err
	}
	return &models.Withdrawal{
		OriginatorConversationId: d.OriginatorConversationId,
		ConversationId:           d.ConversationId,
		Phone:                    d.Phone,
		Amount:                   amount,
		Status:                   d.Status,
		ResultCode:               d.ResultCode,
		ResultDesc:               d.ResultDesc,
		TransactionId:            d.TransactionId,
		ReceiptNumber:            d.ReceiptNumber,
		CreatedAt:                d.CreatedAt,
		UpdatedAt:                d.UpdatedAt,
	}, nil
}

type entryDocument struct {
	Id            string               `bson:"_id"`
	Phone         string               `bson:"phone"`
	Kind          string               `bson:"kind"`
	Amount        primitive.Decimal128 `bson:"amount"`
	BalanceBefore primitive.Decimal128 `bson:"balance_before"`
	BalanceAfter  primitive.Decimal128 `bson:"balance_after"`
	Reference     string               `bson:"reference"`
	CreatedAt     time.Time            `bson:"created_at"`
}

func (d entryDocument) toModel() (*models.BalanceEntry, error) {
	amount, err := fromDecimal128(d.Amount)
	if err != nil {
		return nil, err
	}
	before, err := fromDecimal128(d.BalanceBefore)
	if err != nil {
		return nil, err
	}
	after, err := fromDecimal128(d.BalanceAfter)
	if err != nil {
		return nil, err
	}
	return &models.BalanceEntry{
		Id:            d.Id,
		Phone:         d.Phone,
		Kind:          d.Kind,
		Amount:        amount,
		BalanceBefore: before,
		BalanceAfter:  after,
		Reference:     d.Reference,
		CreatedAt:     d.CreatedAt,
	}, nil
}

type offlineDocument struct {
	Id         string    `bson:"_id"`
	TransId    string    `bson:"trans_id"`
	Payload    []byte    `bson:"payload"`
	Body       bson.M    `bson:"body,omitempty"`
	ReceivedAt time.Time `bson:"received_at"`
}

// newOfflineDocument keeps the raw payload and, when it is JSON, a queryable copy
func newOfflineDocument(id, transId string, payload []byte, receivedAt time.Time) offlineDocument {
	doc := offlineDocument{Id: id, TransId: transId, Payload: payload, ReceivedAt: receivedAt}

	var body bson.M
	if err := bson.UnmarshalExtJSON(payload, false, &body); err == nil {
		doc.Body = body
	}
	return doc
}

func toDecimal128(d decimal.Decimal) (primitive.Decimal128, error) {
	v, err := primitive.ParseDecimal128(d.String())
	if err != nil {
		return primitive.Decimal128{}, fmt.Errorf("failed to convert %s to decimal128: %w", d.String(), err)
	}
	return v, nil
}

func fromDecimal128(v primitive.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse decimal128 %s: %w", v.String(), err)
	}
	return d, nil
}
