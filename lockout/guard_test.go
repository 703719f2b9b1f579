package lockout_test

import (
	"sync"
	"testing"
	"time"

	"github.com/nexahq/nexa-auth/lockout"
	"github.com/stretchr/testify/require"
)

const (
	testIP         = "203.0.113.7"
	testIdentifier = "john.doe@example.com"
)

type guardFixture struct {
	guard *lockout.Guard
	now   time.Time
}

func setupGuardFixture(t *testing.T) *guardFixture {
	t.Helper()

	f := &guardFixture{now: time.Date(2026, 1, 2, 12, 0, 0, 0, time.UTC)}
	f.guard = lockout.NewGuard(lockout.NewInMemoryCounterStore(),
		lockout.WithNowFunc(func() time.Time { return f.now }))
	return f
}

func (f *guardFixture) fail(times int) {
	for i := 0; i < times; i++ {
		f.guard.RecordFailure(testIP, testIdentifier)
	}
}

func TestPrecheckAllowsUnknownKey(t *testing.T) {
	f := setupGuardFixture(t)
	require.NoError(t, f.guard.Precheck(testIP, testIdentifier))
}

func TestLockoutThreshold(t *testing.T) {
	f := setupGuardFixture(t)

	f.fail(4)
	require.NoError(t, f.guard.Precheck(testIP, testIdentifier))

	f.fail(1)
	require.ErrorIs(t, f.guard.Precheck(testIP, testIdentifier), lockout.ErrLockedOut)
}

func TestSuccessResetsCounter(t *testing.T) {
	f := setupGuardFixture(t)

	f.fail(4)
	f.guard.RecordSuccess(testIP, testIdentifier)

	f.fail(4)
	require.NoError(t, f.guard.Precheck(testIP, testIdentifier))
}

func TestLockoutExpires(t *testing.T) {
	f := setupGuardFixture(t)

	f.fail(5)
	require.ErrorIs(t, f.guard.Precheck(testIP, testIdentifier), lockout.ErrLockedOut)

	f.now = f.now.Add(10*time.Minute + time.Second)
	require.NoError(t, f.guard.Precheck(testIP, testIdentifier))
}

func TestFailuresAgeOutOfWindow(t *testing.T) {
	f := setupGuardFixture(t)

	f.fail(4)
	f.now = f.now.Add(16 * time.Minute)

	// The earlier failures have aged out, so this is failure 1 of 5.
	f.fail(1)
	require.NoError(t, f.guard.Precheck(testIP, testIdentifier))
}

func TestFailuresIgnoredWhileLocked(t *testing.T) {
	f := setupGuardFixture(t)

	f.fail(5)
	lockedAt := f.now

	// Attempts during the lockout neither extend nor shrink it.
	f.now = lockedAt.Add(5 * time.Minute)
	f.fail(3)

	f.now = lockedAt.Add(10*time.Minute + time.Second)
	require.NoError(t, f.guard.Precheck(testIP, testIdentifier))
}

func TestKeysAreIndependent(t *testing.T) {
	f := setupGuardFixture(t)

	f.fail(5)
	require.ErrorIs(t, f.guard.Precheck(testIP, testIdentifier), lockout.ErrLockedOut)

	require.NoError(t, f.guard.Precheck("198.51.100.9", testIdentifier))
	require.NoError(t, f.guard.Precheck(testIP, "other@example.com"))
}

func TestConcurrentFailuresStillLock(t *testing.T) {
	// Five failures racing each other must still reach the threshold; a lost
	// update here would let an attacker spread attempts across connections.
	for round := 0; round < 200; round++ {
		f := setupGuardFixture(t)

		var wg sync.WaitGroup
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				f.guard.RecordFailure(testIP, testIdentifier)
			}()
		}
		wg.Wait()

		require.ErrorIs(t, f.guard.Precheck(testIP, testIdentifier), lockout.ErrLockedOut)
	}
}

func TestLockoutScenario(t *testing.T) {
	f := setupGuardFixture(t)

	// Five wrong passwords lock the key.
	for i := 0; i < 5; i++ {
		require.NoError(t, f.guard.Precheck(testIP, testIdentifier))
		f.guard.RecordFailure(testIP, testIdentifier)
	}
	require.ErrorIs(t, f.guard.Precheck(testIP, testIdentifier), lockout.ErrLockedOut)

	// After the lockout passes, the correct password goes through.
	f.now = f.now.Add(11 * time.Minute)
	require.NoError(t, f.guard.Precheck(testIP, testIdentifier))
	f.guard.RecordSuccess(testIP, testIdentifier)
	require.NoError(t, f.guard.Precheck(testIP, testIdentifier))
}
