package trace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := WithContext(context.Background(), "abc")
	assert.Equal(t, "abc", FromContext(ctx))
	assert.Equal(t, "", FromContext(context.Background()))
}

func TestEnsureFromHeader(t *testing.T) {
	assert.Equal(t, "given", EnsureFromHeader("given"))

	generated := EnsureFromHeader("")
	assert.Len(t, generated, 32)
	assert.NotEqual(t, generated, EnsureFromHeader(""))
}
