package errors

import (
	"database/sql"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromErrorWrapsUnknown(t *testing.T) {
	err := FromError(sql.ErrConnDone)
	assert.Equal(t, ErrInternal.Code, err.Code)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestCloneKeepsCode(t *testing.T) {
	err := Clone(ErrConflict, "application already submitted")
	assert.Equal(t, "CONFLICT", err.Code)
	assert.Equal(t, "application already submitted", err.Message)
	assert.Equal(t, "conflict", ErrConflict.Message)
}

func TestIsMatchesWrappedCode(t *testing.T) {
	wrapped := fmt.Errorf("service: %w", Clone(ErrNotFound, "draft not found"))
	assert.True(t, Is(wrapped, ErrNotFound))
	assert.False(t, Is(wrapped, ErrConflict))
	assert.False(t, Is(nil, ErrNotFound))
}
