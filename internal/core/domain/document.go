package domain

// Document is one record read from a collection.
// Root keeps the source field order, which fixes first-seen column order.
type Document struct {
	// ID is the document identifier rendered as a string, used in logs and reports.
	ID string

	// Root holds the top-level fields.
	Root Object
}

// Field is one key/value pair of an Object.
type Field struct {
	Key   string
	Value any
}

// Object is an ordered mapping from field name to value.
// Values are scalars (see ScalarKind), Object or Array.
type Object []Field

// Array is an ordered list of values.
type Array []any

// Get returns the value stored under key.
func (o Object) Get(key string) (any, bool) {
	for _, f := range o {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Keys returns the field names in order.
func (o Object) Keys() []string {
	keys := make([]string, len(o))
	for i, f := range o {
		keys[i] = f.Key
	}
	return keys
}

// IsComposite returns true if v is an Object or Array.
func IsComposite(v any) bool {
	switch v.(type) {
	case Object, Array:
		return true
	default:
		return false
	}
}

// ObjectID is a 12-byte document-store identifier in its 24-char hex form.
type ObjectID string

// String returns the hex form.
func (id ObjectID) String() string {
	return string(id)
}

// Decimal is an arbitrary precision decimal in its canonical text form.
type Decimal string

// String returns the decimal text.
func (d Decimal) String() string {
	return string(d)
}
