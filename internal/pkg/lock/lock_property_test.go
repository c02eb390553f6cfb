// Package lock provides per-session locking for credit-spending operations.
// Property-based tests for concurrent credit safety.
package lock

import (
	"fmt"
	"sync"
	"testing"

	"pgregory.net/rapid"
)

// TestConcurrentCreditSafetyProperty checks that concurrent credit updates on
// the same session token, guarded by the lock, end at the value sequential
// execution would produce.
func TestConcurrentCreditSafetyProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		initialCredits := rapid.IntRange(0, 1000).Draw(t, "initialCredits")

		// Number of concurrent operations (2-20)
		numOps := rapid.IntRange(2, 20).Draw(t, "numOps")

		deltas := make([]int, numOps)
		expected := initialCredits
		for i := 0; i < numOps; i++ {
			deltas[i] = rapid.IntRange(-5, 10).Draw(t, "delta")
			expected += deltas[i]
		}

		token := fmt.Sprintf("session_%d", rapid.Int64Range(1, 1_000_000).Draw(t, "tokenSuffix"))

		sl := NewSessionLock()
		credits := initialCredits

		var wg sync.WaitGroup
		wg.Add(numOps)
		for _, d := range deltas {
			go func(delta int) {
				defer wg.Done()
				sl.Lock(token)
				defer sl.Unlock(token)
				// read-modify-write guarded by the lock
				credits += delta
			}(d)
		}
		wg.Wait()

		if credits != expected {
			t.Fatalf("credit mismatch with locking: expected %d, got %d (initial=%d, numOps=%d)",
				expected, credits, initialCredits, numOps)
		}
	})
}

// TestWithLockSerializesProperty checks that WithLock serializes callbacks for
// the same token while separate tokens stay independent.
func TestWithLockSerializesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numOps := rapid.IntRange(2, 16).Draw(t, "numOps")

		sl := NewSessionLock()
		var countA, countB int

		var wg sync.WaitGroup
		wg.Add(numOps * 2)
		for i := 0; i < numOps; i++ {
			go func() {
				defer wg.Done()
				_ = sl.WithLock("session_a", func() error {
					countA++
					return nil
				})
			}()
			go func() {
				defer wg.Done()
				_ = sl.WithLock("session_b", func() error {
					countB++
					return nil
				})
			}()
		}
		wg.Wait()

		if countA != numOps || countB != numOps {
			t.Fatalf("expected %d increments per token, got a=%d b=%d", numOps, countA, countB)
		}
	})
}

// TestTryLockExclusion checks that TryLock fails while the token is held and
// succeeds once released.
func TestTryLockExclusion(t *testing.T) {
	sl := NewSessionLock()
	const token = "session_trylock"

	sl.Lock(token)
	if sl.TryLock(token) {
		t.Fatal("TryLock succeeded while lock was held")
	}
	if !sl.IsLocked(token) {
		t.Fatal("IsLocked reported free while lock was held")
	}
	sl.Unlock(token)

	if !sl.TryLock(token) {
		t.Fatal("TryLock failed on a free lock")
	}
	sl.Unlock(token)
}
