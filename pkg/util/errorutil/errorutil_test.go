package errorutil

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		req := require.New(t)
		err := MapError(nil)
		req.NoError(err)
		req.Nil(err)
	})

	t.Run("domain errors pass through unchanged", func(t *testing.T) {
		req := require.New(t)
		original := NewForbidden("no access")
		mapped := MapError(original)

		var domainErr *DomainError
		req.ErrorAs(mapped, &domainErr)
		req.Equal("FORBIDDEN", domainErr.Code)
		req.Equal(403, domainErr.HTTPStatus)
	})

	t.Run("wrapped domain errors resolve to the inner code", func(t *testing.T) {
		req := require.New(t)
		wrapped := fmt.Errorf("loading conversation: %w", NewConflict("duplicate", nil))

		var domainErr *DomainError
		req.ErrorAs(MapError(wrapped), &domainErr)
		req.Equal("CONFLICT", domainErr.Code)
	})

	t.Run("no rows maps to not found", func(t *testing.T) {
		req := require.New(t)
		var domainErr *DomainError
		req.ErrorAs(MapError(pgx.ErrNoRows), &domainErr)
		req.Equal("NOT_FOUND", domainErr.Code)
	})

	t.Run("unknown errors map to internal", func(t *testing.T) {
		req := require.New(t)
		var domainErr *DomainError
		req.ErrorAs(MapError(errors.New("connection reset")), &domainErr)
		req.Equal("INTERNAL_ERROR", domainErr.Code)
		req.Equal(500, domainErr.HTTPStatus)
	})
}

func TestIsNotFound(t *testing.T) {
	req := require.New(t)
	req.True(IsNotFound(NewNotFound("group", nil)))
	req.True(IsNotFound(pgx.ErrNoRows))
	req.False(IsNotFound(NewForbidden("no")))
	req.False(IsNotFound(nil))
}
