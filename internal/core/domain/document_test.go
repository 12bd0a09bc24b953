package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestObject_Get(t *testing.T) {
	obj := Object{{Key: "name", Value: "a"}, {Key: "n", Value: nil}}

	v, ok := obj.Get("name")
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	v, ok = obj.Get("n")
	assert.True(t, ok)
	assert.Nil(t, v)

	_, ok = obj.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"name", "n"}, obj.Keys())
}

func TestIsComposite(t *testing.T) {
	assert.True(t, IsComposite(Object{}))
	assert.True(t, IsComposite(Array{1}))
	assert.False(t, IsComposite("x"))
	assert.False(t, IsComposite(nil))
}
