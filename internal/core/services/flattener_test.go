package services

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

func TestFlattener_Flatten_ListOfObjects(t *testing.T) {
	f := NewFlattener(10)

	row, err := f.Flatten(doc(1, "name", "a", "tags", arr(obj("v", "x"), obj("v", "y"))))

	require.NoError(t, err)
	assert.Equal(t, []string{"_id", "name", "tags_0_v", "tags_1_v"}, row.Keys())
	assert.Equal(t, map[string]string{
		"_id":      "1",
		"name":     "a",
		"tags_0_v": "x",
		"tags_1_v": "y",
	}, row.Map())
}

func TestFlattener_Flatten_FlatDocument(t *testing.T) {
	f := NewFlattener(10)
	d := doc(2, "name", "b", "active", true, "score", 1.5, "none", nil)

	row, err := f.Flatten(d)

	require.NoError(t, err)
	assert.Equal(t, d.Root.Keys(), row.Keys(), "flat document keeps its field set")
	v, _ := row.Get("none")
	assert.Equal(t, "", v)
}

func TestFlattener_Flatten_NestedPaths(t *testing.T) {
	f := NewFlattener(10)
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	row, err := f.Flatten(doc(3,
		"user", obj("address", obj("city", "Oslo", "zip", 150)),
		"mixed", arr("a", obj("k", "v"), arr(1, 2)),
		"created", ts,
	))

	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"_id":               "3",
		"user_address_city": "Oslo",
		"user_address_zip":  "150",
		"mixed_0":           "a",
		"mixed_1_k":         "v",
		"mixed_2_0":         "1",
		"mixed_2_1":         "2",
		"created":           "2024-01-02T03:04:05Z",
	}, row.Map())
}

func TestFlattener_Flatten_EmptyContainersEmitNothing(t *testing.T) {
	f := NewFlattener(10)

	row, err := f.Flatten(doc(4, "meta", obj(), "tags", arr(), "list", arr(obj())))

	require.NoError(t, err)
	assert.Equal(t, []string{"_id"}, row.Keys())
}

func TestFlattener_Flatten_DepthGuard(t *testing.T) {
	deep := any("leaf")
	for i := 0; i < 5; i++ {
		deep = obj("n", deep)
	}
	d := doc(5, "root", deep)

	_, err := NewFlattener(5).Flatten(d)
	assert.True(t, errors.Is(err, domain.ErrStructureTooDeep))

	row, err := NewFlattener(6).Flatten(d)
	require.NoError(t, err)
	assert.Equal(t, []string{"_id", "root_n_n_n_n_n"}, row.Keys())
}

func TestFlattener_Flatten_DepthGuardOnLists(t *testing.T) {
	_, err := NewFlattener(2).Flatten(doc(6, "a", arr(arr(1))))

	assert.True(t, errors.Is(err, domain.ErrStructureTooDeep))
}

func TestFlattener_Flatten_Unstringifiable(t *testing.T) {
	type javascript struct{ Code string }

	_, err := NewFlattener(10).Flatten(doc(7, "fn", javascript{Code: "x"}))

	assert.True(t, errors.Is(err, domain.ErrUnstringifiableValue))
	assert.Contains(t, err.Error(), `"fn"`)
}

func TestFlattener_Flatten_KeyCollision(t *testing.T) {
	_, err := NewFlattener(10).Flatten(doc(8, "a", obj("b", 1), "a_b", 2))

	assert.True(t, errors.Is(err, domain.ErrKeyCollision))
}

func TestFlattener_Flatten_EscapesNumericFieldNames(t *testing.T) {
	row, err := NewFlattener(10).Flatten(doc(9, "sales", obj("2024", 10, "q_1", 3), "a~b", "t"))

	require.NoError(t, err)
	assert.Equal(t, []string{"_id", "sales_~2024", "sales_q_~1", "a~~b"}, row.Keys())
	for _, key := range row.Keys() {
		_, _, _, indexed := ParseFlatKey(key)
		assert.False(t, indexed, "escaped key %q must not look indexed", key)
	}
}

func TestFlattener_Flatten_PreservesLeafValues(t *testing.T) {
	d := doc(10,
		"name", "n",
		"items", arr(obj("sku", "A", "qty", 2), obj("sku", "B", "qty", nil)),
		"tags", arr("x", "y", "x"),
		"meta", obj("ok", false),
	)

	row, err := NewFlattener(10).Flatten(d)
	require.NoError(t, err)

	var want []string
	collectLeaves(t, d.Root, &want)
	var got []string
	for _, key := range row.Keys() {
		v, _ := row.Get(key)
		got = append(got, v)
	}
	sort.Strings(want)
	sort.Strings(got)
	assert.Equal(t, want, got)
}

func collectLeaves(t *testing.T, v any, out *[]string) {
	t.Helper()
	switch x := v.(type) {
	case domain.Object:
		for _, f := range x {
			collectLeaves(t, f.Value, out)
		}
	case domain.Array:
		for _, e := range x {
			collectLeaves(t, e, out)
		}
	default:
		s, err := domain.Stringify(x)
		require.NoError(t, err)
		*out = append(*out, s)
	}
}

func TestFlattener_FlattenBatch_PreservesOrder(t *testing.T) {
	docs := make([]domain.Document, 50)
	for i := range docs {
		docs[i] = doc(i, "v", i)
	}
	docs[7] = doc(7, "bad", struct{}{})

	rows, errs, err := NewFlattener(10).FlattenBatch(context.Background(), docs, 4)

	require.NoError(t, err)
	require.Len(t, rows, 50)
	for i, row := range rows {
		if i == 7 {
			var docErr *domain.DocumentError
			require.True(t, errors.As(errs[i], &docErr))
			assert.Equal(t, "7", docErr.DocumentID)
			continue
		}
		require.NoError(t, errs[i])
		v, _ := row.Get("_id")
		assert.Equal(t, docs[i].ID, v)
	}
}

func TestFlattener_FlattenBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := NewFlattener(10).FlattenBatch(ctx, []domain.Document{doc(1)}, 1)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestEscapeFieldName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"plain", "plain"},
		{"_id", "_id"},
		{"2024", "~2024"},
		{"q_1", "q_~1"},
		{"a~b", "a~~b"},
		{"~5", "~~5"},
		{"x__0_", "x__~0_"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EscapeFieldName(tt.name)
			assert.Equal(t, tt.want, got)
			_, _, _, indexed := ParseFlatKey(got)
			assert.False(t, indexed)
		})
	}
}
