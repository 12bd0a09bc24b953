package bsonconv

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

func TestValue_Scalars(t *testing.T) {
	oid, err := bson.ObjectIDFromHex("65f0a1b2c3d4e5f601234567")
	require.NoError(t, err)
	dec, err := bson.ParseDecimal128("12.50")
	require.NoError(t, err)
	when := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"string", "x", "x"},
		{"int32", int32(7), int32(7)},
		{"int64", int64(7), int64(7)},
		{"double", 1.5, 1.5},
		{"bool", true, true},
		{"nil", nil, nil},
		{"null", bson.Null{}, nil},
		{"undefined", bson.Undefined{}, nil},
		{"object id", oid, domain.ObjectID("65f0a1b2c3d4e5f601234567")},
		{"datetime", bson.NewDateTimeFromTime(when), when},
		{"timestamp", bson.Timestamp{T: uint32(when.Unix()), I: 1}, when},
		{"decimal", dec, domain.Decimal("12.50")},
		{"binary", bson.Binary{Subtype: 0x00, Data: []byte{1, 2}}, []byte{1, 2}},
		{"regex", bson.Regex{Pattern: "^a", Options: "i"}, "/^a/i"},
		{"javascript", bson.JavaScript("f()"), "f()"},
		{"symbol", bson.Symbol("s"), "s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Value(tt.in))
		})
	}
}

func TestValue_UUIDBinary(t *testing.T) {
	data := []byte{0x12, 0x3e, 0x45, 0x67, 0xe8, 0x9b, 0x12, 0xd3, 0xa4, 0x56, 0x42, 0x66, 0x14, 0x17, 0x40, 0x00}

	got := Value(bson.Binary{Subtype: 0x04, Data: data})

	assert.Equal(t, "123e4567-e89b-12d3-a456-426614174000", got)
}

func TestValue_Containers(t *testing.T) {
	in := bson.D{
		{Key: "b", Value: int32(1)},
		{Key: "a", Value: bson.A{"x", bson.D{{Key: "v", Value: "y"}}}},
		{Key: "m", Value: bson.M{"z": 1, "y": 2}},
	}

	got := Object(in)

	assert.Equal(t, domain.Object{
		{Key: "b", Value: int32(1)},
		{Key: "a", Value: domain.Array{"x", domain.Object{{Key: "v", Value: "y"}}}},
		{Key: "m", Value: domain.Object{{Key: "y", Value: 2}, {Key: "z", Value: 1}}},
	}, got)
}

func TestValue_UnsupportedPassesThrough(t *testing.T) {
	tests := []struct {
		name string
		in   any
	}{
		{"min key", bson.MinKey{}},
		{"max key", bson.MaxKey{}},
		{"db pointer", bson.DBPointer{DB: "db.c", Pointer: bson.NewObjectID()}},
		{"code with scope", bson.CodeWithScope{Code: "f()", Scope: bson.D{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := domain.Stringify(Value(tt.in))
			assert.True(t, errors.Is(err, domain.ErrUnstringifiableValue))
		})
	}
}

func TestParseExtJSON(t *testing.T) {
	doc, err := ParseExtJSON([]byte(`{"_id":{"$oid":"65f0a1b2c3d4e5f601234567"},"n":{"$numberLong":"5"},"tags":[{"v":"x"}]}`))

	require.NoError(t, err)
	assert.Equal(t, "65f0a1b2c3d4e5f601234567", doc.ID)
	assert.Equal(t, []string{"_id", "n", "tags"}, doc.Root.Keys())
	n, _ := doc.Root.Get("n")
	assert.Equal(t, int64(5), n)
	tags, _ := doc.Root.Get("tags")
	assert.Equal(t, domain.Array{domain.Object{{Key: "v", Value: "x"}}}, tags)
}

func TestParseExtJSON_Relaxed(t *testing.T) {
	doc, err := ParseExtJSON([]byte(`{"_id": 3, "at": {"$date": "2024-01-02T03:04:05Z"}}`))

	require.NoError(t, err)
	assert.Equal(t, "3", doc.ID)
	at, _ := doc.Root.Get("at")
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), at)
}

func TestParseExtJSON_Invalid(t *testing.T) {
	_, err := ParseExtJSON([]byte(`{"_id":`))

	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestDocument_NoID(t *testing.T) {
	doc := Document(bson.D{{Key: "a", Value: "b"}})

	assert.Empty(t, doc.ID)
	assert.Len(t, doc.Root, 1)
}
