package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKBest(t *testing.T) {
	t.Run("RetainsKSmallest", func(t *testing.T) {
		q := NewKBest(3)
		for _, c := range []Candidate{
			{Index: 0, Distance: 5},
			{Index: 1, Distance: 1},
			{Index: 2, Distance: 4},
			{Index: 3, Distance: 2},
			{Index: 4, Distance: 3},
		} {
			q.Offer(c)
		}

		require.Equal(t, 3, q.Len())
		assert.Equal(t, []Candidate{
			{Index: 1, Distance: 1},
			{Index: 3, Distance: 2},
			{Index: 4, Distance: 3},
		}, q.Sorted())
	})

	t.Run("TieBrokenByIndex", func(t *testing.T) {
		q := NewKBest(2)
		q.Offer(Candidate{Index: 7, Distance: 1})
		q.Offer(Candidate{Index: 9, Distance: 1})
		// Same distance as the current worst but smaller index: must evict 9.
		q.Offer(Candidate{Index: 3, Distance: 1})

		assert.Equal(t, []Candidate{
			{Index: 3, Distance: 1},
			{Index: 7, Distance: 1},
		}, q.Sorted())
	})

	t.Run("WorseCandidateIgnoredWhenFull", func(t *testing.T) {
		q := NewKBest(2)
		q.Offer(Candidate{Index: 0, Distance: 1})
		q.Offer(Candidate{Index: 1, Distance: 2})
		q.Offer(Candidate{Index: 2, Distance: 3})

		worst, ok := q.Worst()
		require.True(t, ok)
		assert.Equal(t, Candidate{Index: 1, Distance: 2}, worst)
	})

	t.Run("EqualDistanceLargerIndexIgnored", func(t *testing.T) {
		q := NewKBest(1)
		q.Offer(Candidate{Index: 2, Distance: 1})
		q.Offer(Candidate{Index: 5, Distance: 1})

		assert.Equal(t, []Candidate{{Index: 2, Distance: 1}}, q.Sorted())
	})

	t.Run("Empty", func(t *testing.T) {
		q := NewKBest(4)
		_, ok := q.Worst()
		assert.False(t, ok)
		assert.False(t, q.Full())
		assert.Empty(t, q.Sorted())
	})
}
