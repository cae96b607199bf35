package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewInterruptHandler(t *testing.T) {
	handler := NewInterruptHandler(nil)
	assert.NotNil(t, handler.out)
	assert.False(t, handler.WasInterrupted())
}

func TestInterruptCancelsContext(t *testing.T) {
	var out bytes.Buffer
	handler := NewInterruptHandler(&out)
	ctx := handler.HandleInterrupts(context.Background(), true)

	handler.interrupt()
	handler.interrupt()

	<-ctx.Done()
	assert.True(t, handler.WasInterrupted())
	assert.Contains(t, out.String(), "Matching interrupted!")
	assert.Contains(t, out.String(), "Rerun the same bundle")
	assert.Equal(t, 1, bytes.Count(out.Bytes(), []byte("Matching interrupted!")))
}
