package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

// Flattener expands nested documents into single-level rows.
// It holds no state besides its depth limit and is safe for concurrent use.
type Flattener struct {
	maxDepth int
}

// NewFlattener creates a flattener that rejects documents nested deeper than maxDepth.
func NewFlattener(maxDepth int) *Flattener {
	if maxDepth < 1 {
		maxDepth = domain.DefaultMaxDepth
	}
	return &Flattener{maxDepth: maxDepth}
}

// Flatten expands doc into a FlatRow.
//
// Object fields are joined to their parent with "_" and list elements use
// their zero-based index, so {"a":[{"b":1}]} becomes {"a_0_b":"1"}.
// Empty objects and lists emit no key.
func (f *Flattener) Flatten(doc domain.Document) (domain.FlatRow, error) {
	row := domain.NewFlatRow(len(doc.Root))
	if err := f.walkObject(&row, doc.Root, "", 1); err != nil {
		return domain.FlatRow{}, err
	}
	return row, nil
}

// FlattenBatch flattens docs on up to workers goroutines.
// Results and errors are positional: errs[i] is set when rows[i] is unusable.
func (f *Flattener) FlattenBatch(ctx context.Context, docs []domain.Document, workers int) ([]domain.FlatRow, []error, error) {
	return convertBatch(ctx, docs, workers, f.Flatten)
}

func (f *Flattener) walkObject(row *domain.FlatRow, obj domain.Object, prefix string, depth int) error {
	if depth > f.maxDepth {
		return fmt.Errorf("%w: exceeds %d levels at %q", domain.ErrStructureTooDeep, f.maxDepth, prefix)
	}
	for _, field := range obj {
		if err := f.walkValue(row, field.Value, joinKey(prefix, EscapeFieldName(field.Key)), depth); err != nil {
			return err
		}
	}
	return nil
}

func (f *Flattener) walkValue(row *domain.FlatRow, v any, key string, depth int) error {
	switch x := v.(type) {
	case domain.Object:
		if len(x) == 0 {
			return nil
		}
		return f.walkObject(row, x, key, depth+1)
	case domain.Array:
		if len(x) == 0 {
			return nil
		}
		if depth+1 > f.maxDepth {
			return fmt.Errorf("%w: exceeds %d levels at %q", domain.ErrStructureTooDeep, f.maxDepth, key)
		}
		for i, elem := range x {
			if err := f.walkValue(row, elem, joinKey(key, strconv.Itoa(i)), depth+1); err != nil {
				return err
			}
		}
		return nil
	default:
		s, err := domain.Stringify(v)
		if err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
		return row.Set(key, s)
	}
}

func joinKey(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + domain.FlatKeySeparator + name
}

// EscapeFieldName makes a field name safe to embed in a flat key.
//
// "~" is doubled and every "_"-delimited token made only of digits gets a "~"
// prefix, so an all-digit token in a flat key is always a list index.
func EscapeFieldName(name string) string {
	if !strings.Contains(name, "~") && !hasDigitToken(name) {
		return name
	}
	tokens := strings.Split(strings.ReplaceAll(name, "~", "~~"), domain.FlatKeySeparator)
	for i, tok := range tokens {
		if isDigits(tok) {
			tokens[i] = "~" + tok
		}
	}
	return strings.Join(tokens, domain.FlatKeySeparator)
}

func hasDigitToken(name string) bool {
	for _, tok := range strings.Split(name, domain.FlatKeySeparator) {
		if isDigits(tok) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
