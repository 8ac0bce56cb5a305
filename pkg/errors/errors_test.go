package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCloneKeepsIdentity(t *testing.T) {
	clone := Clone(ErrNotFound, "event not found")
	require.Equal(t, "event not found", clone.Message)
	require.Equal(t, ErrNotFound.Status, clone.Status)
	require.True(t, errors.Is(clone, ErrNotFound))
	require.False(t, errors.Is(clone, ErrValidation))
	require.Equal(t, "resource not found", ErrNotFound.Message)
}

func TestFromErrorWrapsUnknown(t *testing.T) {
	raw := fmt.Errorf("boom")
	appErr := FromError(raw)
	require.Equal(t, http.StatusInternalServerError, appErr.Status)
	require.ErrorIs(t, appErr, raw)

	typed := Clone(ErrValidation, "bad")
	require.Same(t, typed, FromError(fmt.Errorf("ctx: %w", typed)))
	require.Nil(t, FromError(nil))
}

func TestInternalMessage(t *testing.T) {
	err := Internal(fmt.Errorf("disk full"), "failed to store photo")
	require.Equal(t, "failed to store photo: disk full", err.Error())
	require.Equal(t, ErrInternal.Code, err.Code)
}
