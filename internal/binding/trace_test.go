package binding

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testInts  = NewSlice[int, string]("TEST_INTS")
	testLists = NewSliceFunc[int, []int]("TEST_LISTS", func(a, b []int) bool { return len(a) == len(b) })
)

func TestRecordIsWriteOnce(t *testing.T) {
	tr := NewTrace()
	Record(tr, testInts, 1, "one")
	Record(tr, testInts, 1, "one")

	v, ok := Get(tr, testInts, 1)
	require.True(t, ok)
	assert.Equal(t, "one", v)

	assert.PanicsWithError(t, "binding: TEST_INTS already recorded for 1", func() {
		Record(tr, testInts, 1, "uno")
	})
}

func TestCustomEquality(t *testing.T) {
	tr := NewTrace()
	Record(tr, testLists, 7, []int{1, 2})
	assert.NotPanics(t, func() { Record(tr, testLists, 7, []int{3, 4}) })
	assert.Panics(t, func() { Record(tr, testLists, 7, []int{1}) })
}

func TestTemporaryTraceCommits(t *testing.T) {
	tr := NewTrace()
	Record(tr, testInts, 1, "one")

	tmp := tr.Temporary()
	Record(tmp, testInts, 2, "two")
	v, ok := Get(tmp, testInts, 1)
	require.True(t, ok, "temporary trace reads through")
	assert.Equal(t, "one", v)
	assert.False(t, Has(tr, testInts, 2), "uncommitted facts stay local")

	tmp.Commit()
	assert.True(t, Has(tr, testInts, 2))
	assert.Equal(t, []int{1, 2}, Keys(tr, testInts))
}

func TestDiscardedTemporaryLeavesNoTrace(t *testing.T) {
	tr := NewTrace()
	tmp := tr.Temporary()
	Record(tmp, testInts, 5, "five")
	assert.Empty(t, Keys(tr, testInts))
}

func TestConcurrentRecording(t *testing.T) {
	tr := NewTrace()
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			Record(tr, testInts, i, "v")
		}(i)
	}
	wg.Wait()
	assert.Len(t, Keys(tr, testInts), 32)
}
