package mongodb

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDecimal128RoundTrip(t *testing.T) {
	for _, in := range []string{"0", "100", "100.50", "-40", "0.0001", "123456789.123456789"} {
		d := decimal.RequireFromString(in)

		v, err := toDecimal128(d)
		require.NoError(t, err, in)

		out, err := fromDecimal128(v)
		require.NoError(t, err, in)
		assert.True(t, d.Equal(out), "expected %s, got %s", d, out)
	}
}

func TestUserDocumentToModel(t *testing.T) {
	balance, err := primitive.ParseDecimal128("250.75")
	require.NoError(t, err)

	now := time.Now().UTC()
	user, err := userDocument{
		Phone:             "254712345678",
		Balance:           balance,
		MerchantRequestId: "m-1",
		Version:           3,
		CreatedAt:         now,
		UpdatedAt:         now,
	}.toModel()
	require.NoError(t, err)

	assert.Equal(t, "254712345678", user.Phone)
	assert.True(t, decimal.RequireFromString("250.75").Equal(user.Balance))
	assert.Equal(t, "m-1", user.MerchantRequestId)
	assert.Equal(t, int64(3), user.Version)
}

func TestUserDocumentBSONUsesPhoneAsID(t *testing.T) {
	raw, err := bson.Marshal(userDocument{Phone: "254712345678", Balance: primitive.NewDecimal128(0, 0)})
	require.NoError(t, err)

	var decoded bson.M
	require.NoError(t, bson.Unmarshal(raw, &decoded))
	assert.Equal(t, "254712345678", decoded["_id"])
	_, ok := decoded["balance"].(primitive.Decimal128)
	assert.True(t, ok, "balance should be stored as decimal128")
}

func TestNewOfflineDocument(t *testing.T) {
	now := time.Now().UTC()

	doc := newOfflineDocument("id-1", "RKTQDM7W6S", []byte(`{"TransID":"RKTQDM7W6S","TransAmount":"10.00"}`), now)
	assert.Equal(t, "RKTQDM7W6S", doc.TransId)
	require.NotNil(t, doc.Body)
	assert.Equal(t, "10.00", doc.Body["TransAmount"])

	doc = newOfflineDocument("id-2", "", []byte("not json"), now)
	assert.Nil(t, doc.Body)
	assert.Equal(t, []byte("not json"), doc.Payload)
}
