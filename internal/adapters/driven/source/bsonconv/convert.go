// Package bsonconv converts BSON values decoded by the MongoDB driver into
// domain documents. It is shared by the MongoDB and Extended JSON sources.
package bsonconv

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

// binarySubtypeUUID is the BSON binary subtype for RFC 4122 UUIDs.
const binarySubtypeUUID = 0x04

// Document converts a decoded BSON document.
// The document ID is the stringified _id, or "" when there is none.
func Document(d bson.D) domain.Document {
	root := Object(d)
	doc := domain.Document{Root: root}
	if id, ok := root.Get("_id"); ok {
		doc.ID = documentID(id)
	}
	return doc
}

// ParseExtJSON decodes one Extended JSON document, canonical or relaxed.
func ParseExtJSON(data []byte) (domain.Document, error) {
	var d bson.D
	if err := bson.UnmarshalExtJSON(data, false, &d); err != nil {
		return domain.Document{}, fmt.Errorf("%w: extended json: %w", domain.ErrInvalidInput, err)
	}
	return Document(d), nil
}

// Object converts an ordered BSON document, keeping field order.
func Object(d bson.D) domain.Object {
	obj := make(domain.Object, 0, len(d))
	for _, e := range d {
		obj = append(obj, domain.Field{Key: e.Key, Value: Value(e.Value)})
	}
	return obj
}

// Value converts one BSON value to its domain form.
//
// Types without a domain scalar kind (MinKey, MaxKey, DBPointer,
// CodeWithScope) are returned unchanged and fail later as unstringifiable.
func Value(v any) any {
	switch x := v.(type) {
	case bson.D:
		return Object(x)
	case bson.M:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := make(domain.Object, 0, len(x))
		for _, k := range keys {
			obj = append(obj, domain.Field{Key: k, Value: Value(x[k])})
		}
		return obj
	case bson.A:
		arr := make(domain.Array, len(x))
		for i, elem := range x {
			arr[i] = Value(elem)
		}
		return arr
	case []any:
		return Value(bson.A(x))
	case bson.ObjectID:
		return domain.ObjectID(x.Hex())
	case bson.DateTime:
		return x.Time().UTC()
	case bson.Timestamp:
		return time.Unix(int64(x.T), 0).UTC()
	case bson.Decimal128:
		return domain.Decimal(x.String())
	case bson.Binary:
		if x.Subtype == binarySubtypeUUID && len(x.Data) == 16 {
			if id, err := uuid.FromBytes(x.Data); err == nil {
				return id.String()
			}
		}
		return x.Data
	case bson.Regex:
		return "/" + x.Pattern + "/" + x.Options
	case bson.JavaScript:
		return string(x)
	case bson.Symbol:
		return string(x)
	case bson.Null, bson.Undefined:
		return nil
	default:
		return v
	}
}

func documentID(v any) string {
	if s, err := domain.Stringify(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}
