package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

// CastFlat converts a flat document directly into a FlatRow without flattening.
// Keys are the top-level field names. Scalars go through domain.Stringify and
// any composite value is rendered as canonical JSON.
func CastFlat(doc domain.Document) (domain.FlatRow, error) {
	row := domain.NewFlatRow(len(doc.Root))
	for _, f := range doc.Root {
		var (
			s   string
			err error
		)
		if domain.IsComposite(f.Value) {
			s, err = CanonicalJSON(f.Value)
		} else {
			s, err = domain.Stringify(f.Value)
		}
		if err != nil {
			return domain.FlatRow{}, fmt.Errorf("field %q: %w", f.Key, err)
		}
		if err := row.Set(f.Key, s); err != nil {
			return domain.FlatRow{}, err
		}
	}
	return row, nil
}

// CanonicalJSON renders a value as JSON with field order preserved and every
// scalar leaf rendered as a JSON string of its canonical text. Null stays null.
func CanonicalJSON(v any) (string, error) {
	var b strings.Builder
	if err := writeCanonical(&b, v); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeCanonical(b *strings.Builder, v any) error {
	switch x := v.(type) {
	case nil:
		b.WriteString("null")
	case domain.Object:
		b.WriteByte('{')
		for i, f := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			writeJSONString(b, f.Key)
			b.WriteByte(':')
			if err := writeCanonical(b, f.Value); err != nil {
				return err
			}
		}
		b.WriteByte('}')
	case domain.Array:
		b.WriteByte('[')
		for i, elem := range x {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := writeCanonical(b, elem); err != nil {
				return err
			}
		}
		b.WriteByte(']')
	default:
		s, err := domain.Stringify(v)
		if err != nil {
			return err
		}
		writeJSONString(b, s)
	}
	return nil
}

func writeJSONString(b *strings.Builder, s string) {
	// Marshalling a string cannot fail.
	data, _ := json.Marshal(s)
	b.Write(data)
}
