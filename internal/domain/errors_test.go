package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelsAreDistinct(t *testing.T) {
	all := []error{
		ErrInvalidArgument, ErrNotFound, ErrConflict, ErrRateLimited,
		ErrUpstreamTimeout, ErrUpstreamRateLimit, ErrSchemaInvalid, ErrInternal,
		ErrInvalidTransition, ErrSessionClosed,
	}
	seen := map[string]bool{}
	for i, a := range all {
		assert.False(t, seen[a.Error()], "duplicate message %q", a.Error())
		seen[a.Error()] = true
		for j, b := range all {
			assert.Equal(t, i == j, errors.Is(a, b), "%v vs %v", a, b)
		}
	}
}

func TestSentinelsSurviveWrapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		target error
	}{
		{"intent in wrong step", fmt.Errorf("%w: not interviewing (step uploading)", ErrInvalidTransition), ErrInvalidTransition},
		{"store op prefix", fmt.Errorf("op=redisstore.LoadSession: %w", ErrSchemaInvalid), ErrSchemaInvalid},
		{"double wrap", fmt.Errorf("op=registry.Get: %w", fmt.Errorf("%w: session x", ErrNotFound)), ErrNotFound},
		{"joined", errors.Join(errors.New("mirror down"), ErrInternal), ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.err, tt.target)
			assert.NotErrorIs(t, tt.err, ErrSessionClosed)
		})
	}
}
