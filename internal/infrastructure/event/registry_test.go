package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandlerRegistry(t *testing.T) {
	r := NewHandlerRegistry()
	a := newTestHandler()
	b := newTestHandler()
	wild := newTestHandler()

	r.Register(a, "X", "Y")
	r.Register(b, "X")
	r.Register(wild)

	assert.Len(t, r.GetHandlers("X"), 3)
	assert.Len(t, r.GetHandlers("Y"), 2)
	assert.Len(t, r.GetHandlers("Z"), 1)

	r.Unregister(a)
	assert.Len(t, r.GetHandlers("X"), 2)
	assert.Len(t, r.GetHandlers("Y"), 1)
	_, ok := r.handlers["Y"]
	assert.False(t, ok)

	r.Unregister(wild)
	assert.Equal(t, b, r.GetHandlers("X")[0])
	assert.Empty(t, r.GetHandlers("Z"))
}
