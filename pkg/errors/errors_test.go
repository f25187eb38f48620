package errors

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneKeepsIdentity(t *testing.T) {
	clone := Clone(ErrNotFound, "entry not found")
	assert.Equal(t, "entry not found", clone.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
	assert.True(t, errors.Is(clone, ErrNotFound))
	assert.False(t, errors.Is(clone, ErrConflict))
	assert.Nil(t, Clone(nil, "x"))
}

func TestFromErrorHidesInternals(t *testing.T) {
	appErr := FromError(fmt.Errorf("query users: %w", sql.ErrConnDone))
	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, ErrInternal.Message, appErr.Message)
	assert.ErrorIs(t, appErr, sql.ErrConnDone)

	wrapped := fmt.Errorf("handler: %w", Clone(ErrTokenExpired, "link expired"))
	assert.Equal(t, ErrTokenExpired.Code, FromError(wrapped).Code)
	assert.Nil(t, FromError(nil))
}

func TestWrapMessage(t *testing.T) {
	err := Wrap(errors.New("smtp down"), ErrInternal.Code, ErrInternal.Status, "failed to send mail")
	assert.Equal(t, "failed to send mail: smtp down", err.Error())
	assert.Equal(t, "failed to send mail", New("X", 400, "failed to send mail").Error())
}
