package services

import (
	"fmt"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

// obj builds an ordered Object from alternating keys and values.
func obj(kv ...any) domain.Object {
	o := make(domain.Object, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		o = append(o, domain.Field{Key: kv[i].(string), Value: kv[i+1]})
	}
	return o
}

func arr(vals ...any) domain.Array {
	return domain.Array(vals)
}

func doc(id any, kv ...any) domain.Document {
	return domain.Document{
		ID:   fmt.Sprint(id),
		Root: append(obj("_id", id), obj(kv...)...),
	}
}
