package utils

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithRequestID(t *testing.T) {
	ctx := WithRequestID(context.Background(), "abc")
	assert.Equal(t, "abc", GetRequestIDFromCtx(ctx))

	generated := GetRequestIDFromCtx(WithRequestID(context.Background(), ""))
	assert.Len(t, generated, 36)

	assert.Empty(t, GetRequestIDFromCtx(context.Background()))
}
