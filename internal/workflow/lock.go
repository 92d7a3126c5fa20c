package workflow

import (
	"context"
	"time"

	"github.com/gofrs/flock"
	"github.com/mark3labs/specflow/internal/specerrors"
)

const lockRetryDelay = 25 * time.Millisecond

// acquireLock takes an exclusive OS file lock on lockPath, retrying until
// timeout elapses. Returns a release function that must be called to
// release the lock, or a LockTimeout error if the deadline passed first.
func acquireLock(lockPath string, timeout time.Duration) (release func(), err error) {
	fl := flock.New(lockPath)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	locked, lockErr := fl.TryLockContext(ctx, lockRetryDelay)
	if lockErr != nil || !locked {
		return nil, specerrors.Wrap(specerrors.KindLockTimeout,
			"timed out acquiring the workflow-state lock after "+timeout.String(),
			"retry the operation; if the lock is stale, check for a crashed process holding "+lockPath,
			lockErr)
	}
	return func() { _ = fl.Unlock() }, nil
}
