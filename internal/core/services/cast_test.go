package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tabula/internal/core/domain"
)

func TestCastFlat(t *testing.T) {
	row, err := CastFlat(doc(1,
		"name", "a",
		"q_2024", 7,
		"tags", arr("x", 2, nil),
		"meta", obj(),
	))

	require.NoError(t, err)
	assert.Equal(t, []string{"_id", "name", "q_2024", "tags", "meta"}, row.Keys())
	assert.Equal(t, map[string]string{
		"_id":    "1",
		"name":   "a",
		"q_2024": "7",
		"tags":   `["x","2",null]`,
		"meta":   `{}`,
	}, row.Map())
}

func TestCastFlat_Errors(t *testing.T) {
	_, err := CastFlat(doc(1, "bad", struct{}{}))
	assert.True(t, errors.Is(err, domain.ErrUnstringifiableValue))

	_, err = CastFlat(domain.Document{ID: "x", Root: obj("a", 1, "a", 2)})
	assert.True(t, errors.Is(err, domain.ErrKeyCollision))
}

func TestCanonicalJSON_KeepsFieldOrder(t *testing.T) {
	s, err := CanonicalJSON(obj("z", 1, "a", obj("q", `say "hi"`), "l", arr()))

	require.NoError(t, err)
	assert.Equal(t, `{"z":"1","a":{"q":"say \"hi\""},"l":[]}`, s)
}
