package main

import "github.com/mark3labs/specflow/internal/specerrors"

// exitCodeFor maps a returned error to the command surface's closed set of
// exit codes: 0 full success, 1 validation error, 2 I/O or lock error,
// 3 external-tool failure, 4 integrity error.
func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	kind, ok := specerrors.KindOf(err)
	if !ok {
		return 2
	}
	switch kind {
	case specerrors.KindValidationViolation, specerrors.KindAlreadyAssigned, specerrors.KindNotInProgress:
		return 1
	case specerrors.KindIOError, specerrors.KindLockTimeout:
		return 2
	case specerrors.KindExternalToolFailure:
		return 3
	case specerrors.KindIntegrityError, specerrors.KindParseError, specerrors.KindConflictDetected:
		return 4
	default:
		return 2
	}
}
