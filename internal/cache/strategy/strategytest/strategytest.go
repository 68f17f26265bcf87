// Package strategytest provides conformance checks shared by every
// strategy.Strategy implementation.
package strategytest

import (
	"slices"
	"testing"

	"github.com/discochess/lrusim/internal/cache/strategy"
)

// Factory builds an empty strategy able to hold capacity keys.
type Factory func(capacity int) strategy.Strategy

// Run exercises the recency contract against strategies built by newStrategy.
func Run(t *testing.T, newStrategy Factory) {
	t.Helper()

	t.Run("Empty", func(t *testing.T) {
		s := newStrategy(4)
		if s.Len() != 0 {
			t.Errorf("Len() = %d, want 0", s.Len())
		}
		if _, ok := s.Victim(nil); ok {
			t.Error("Victim() on empty strategy should return false")
		}
		if keys := s.Keys(); len(keys) != 0 {
			t.Errorf("Keys() = %v, want empty", keys)
		}
	})

	t.Run("PushOrder", func(t *testing.T) {
		s := newStrategy(4)
		for _, k := range []int64{1, 2, 3} {
			s.Push(k)
		}
		assertKeys(t, s, []int64{3, 2, 1})
		assertVictim(t, s, nil, 1)
	})

	t.Run("Touch", func(t *testing.T) {
		s := newStrategy(4)
		for _, k := range []int64{1, 2, 3} {
			s.Push(k)
		}
		s.Touch(1)
		assertKeys(t, s, []int64{1, 3, 2})
		assertVictim(t, s, nil, 2)

		// Touching an absent key changes nothing.
		s.Touch(99)
		assertKeys(t, s, []int64{1, 3, 2})
	})

	t.Run("Remove", func(t *testing.T) {
		s := newStrategy(4)
		for _, k := range []int64{1, 2, 3} {
			s.Push(k)
		}
		s.Remove(2)
		s.Remove(42)
		assertKeys(t, s, []int64{3, 1})

		s.Remove(1)
		assertVictim(t, s, nil, 3)
		s.Remove(3)
		if s.Len() != 0 {
			t.Errorf("Len() = %d, want 0", s.Len())
		}
	})

	t.Run("ReuseAfterRemove", func(t *testing.T) {
		s := newStrategy(2)
		s.Push(1)
		s.Push(2)
		s.Remove(1)
		s.Push(3)
		s.Remove(2)
		s.Push(4)
		assertKeys(t, s, []int64{4, 3})
	})

	t.Run("VictimSkip", func(t *testing.T) {
		s := newStrategy(4)
		for _, k := range []int64{1, 2, 3, 4} {
			s.Push(k)
		}
		pinned := map[int64]bool{1: true, 2: true}
		assertVictim(t, s, func(k int64) bool { return pinned[k] }, 3)

		all := func(int64) bool { return true }
		if _, ok := s.Victim(all); ok {
			t.Error("Victim() should return false when every key is skipped")
		}
	})

	t.Run("Capacity", func(t *testing.T) {
		const n = 64
		s := newStrategy(n)
		for k := int64(0); k < n; k++ {
			s.Push(k)
		}
		if s.Len() != n {
			t.Errorf("Len() = %d, want %d", s.Len(), n)
		}
		assertVictim(t, s, nil, 0)
	})
}

func assertKeys(t *testing.T, s strategy.Strategy, want []int64) {
	t.Helper()
	if got := s.Keys(); !slices.Equal(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	if s.Len() != len(want) {
		t.Errorf("Len() = %d, want %d", s.Len(), len(want))
	}
}

func assertVictim(t *testing.T, s strategy.Strategy, skip func(int64) bool, want int64) {
	t.Helper()
	got, ok := s.Victim(skip)
	if !ok || got != want {
		t.Errorf("Victim() = (%d, %v), want (%d, true)", got, ok, want)
	}
}
