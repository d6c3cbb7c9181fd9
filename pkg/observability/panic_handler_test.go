package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecoverPanic(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	func() {
		defer RecoverPanic(logger, "worker")
		panic("boom")
	}()

	assert.Contains(t, buf.String(), "PANIC recovered")
	assert.Contains(t, buf.String(), `"context":"worker"`)
	assert.Contains(t, buf.String(), `"panic":"boom"`)
}

func TestPanicError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(InfoLevel, &buf)

	assert.NoError(t, PanicError(logger, "render", nil))
	assert.Zero(t, buf.Len())

	err := PanicError(logger, "render", "bad entity")
	assert.EqualError(t, err, "panic in render: bad entity")
	assert.Contains(t, buf.String(), "stack")
}
