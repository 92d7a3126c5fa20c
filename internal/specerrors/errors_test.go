package specerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	err := New(KindValidationViolation, "bad input", "fix it")
	assert.Equal(t, "ValidationViolation: bad input (next: fix it)", err.Error())

	err2 := New(KindIOError, "disk full", "")
	assert.Equal(t, "IOError: disk full", err2.Error())
}

func TestWrap_UnwrapsToCause(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindExternalToolFailure, "lint failed", "retry", cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, cause, errors.Unwrap(err))
}

func TestKindOf_FindsKindThroughWrapping(t *testing.T) {
	base := New(KindLockTimeout, "could not acquire lock", "retry later")
	wrapped := fmt.Errorf("acquiring lock: %w", base)

	kind, ok := KindOf(wrapped)
	assert.True(t, ok)
	assert.Equal(t, KindLockTimeout, kind)
}

func TestKindOf_FalseForPlainError(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	assert.False(t, ok)
}

func TestErrorIs_MatchesSameKindOnly(t *testing.T) {
	a := New(KindAlreadyAssigned, "already assigned to bob", "")
	b := New(KindAlreadyAssigned, "already assigned to alice", "")
	c := New(KindNotInProgress, "not in progress", "")

	assert.True(t, errors.Is(a, b), "two errors of the same kind should match via errors.Is")
	assert.False(t, errors.Is(a, c))
}

func TestIsHelpers(t *testing.T) {
	cases := []struct {
		name string
		err  error
		fn   func(error) bool
		want bool
	}{
		{"parse match", New(KindParseError, "m", ""), IsParseError, true},
		{"parse mismatch", New(KindIOError, "m", ""), IsParseError, false},
		{"integrity match", New(KindIntegrityError, "m", ""), IsIntegrityError, true},
		{"already assigned match", New(KindAlreadyAssigned, "m", ""), IsAlreadyAssigned, true},
		{"not in progress match", New(KindNotInProgress, "m", ""), IsNotInProgress, true},
		{"lock timeout match", New(KindLockTimeout, "m", ""), IsLockTimeout, true},
		{"validation match", New(KindValidationViolation, "m", ""), IsValidationViolation, true},
		{"external tool match", New(KindExternalToolFailure, "m", ""), IsExternalToolFailure, true},
		{"conflict match", New(KindConflictDetected, "m", ""), IsConflictDetected, true},
		{"io match", New(KindIOError, "m", ""), IsIOError, true},
		{"plain error never matches", errors.New("plain"), IsIOError, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.fn(tc.err))
		})
	}
}
