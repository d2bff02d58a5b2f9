package collection

import (
	stderrors "errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/eventkit/errors"
)

func watch(t *testing.T, l *List[string]) *[]Change[string] {
	t.Helper()
	var got []Change[string]
	reg, err := l.Changes().Attach(func(c Change[string]) error {
		got = append(got, c)
		return nil
	})
	require.NoError(t, err)
	t.Cleanup(reg.Dispose)
	return &got
}

func TestList_Mutations(t *testing.T) {
	l := NewList("letters", "a", "b")
	got := watch(t, l)

	require.NoError(t, l.Add("c"))
	require.NoError(t, l.Insert(0, "z"))
	require.NoError(t, l.Move(0, 3))
	require.NoError(t, l.Replace(1, "B"))
	require.NoError(t, l.RemoveAt(0))

	assert.Equal(t, []string{"B", "c", "z"}, l.Items())
	assert.Equal(t, 3, l.Len())

	want := []Change[string]{
		{Kind: KindAdd, NewItems: []string{"c"}, NewIndex: 2, OldIndex: -1},
		{Kind: KindAdd, NewItems: []string{"z"}, NewIndex: 0, OldIndex: -1},
		{Kind: KindMove, NewItems: []string{"z"}, OldItems: []string{"z"}, NewIndex: 3, OldIndex: 0},
		{Kind: KindReplace, NewItems: []string{"B"}, OldItems: []string{"b"}, NewIndex: 1, OldIndex: 1},
		{Kind: KindRemove, OldItems: []string{"a"}, NewIndex: -1, OldIndex: 0},
	}
	assert.Equal(t, want, *got)

	require.NoError(t, l.Clear())
	assert.Zero(t, l.Len())
	assert.Equal(t, KindReset, (*got)[len(*got)-1].Kind)
}

func TestList_Move(t *testing.T) {
	tests := []struct {
		name     string
		from, to int
		want     []string
	}{
		{"forward", 0, 2, []string{"b", "c", "a", "d"}},
		{"backward", 3, 1, []string{"a", "d", "b", "c"}},
		{"same place", 1, 1, []string{"a", "b", "c", "d"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			l := NewList("letters", "a", "b", "c", "d")
			require.NoError(t, l.Move(tc.from, tc.to))
			assert.Equal(t, tc.want, l.Items())
		})
	}
}

func TestList_OutOfRange(t *testing.T) {
	l := NewList("letters", "a")
	got := watch(t, l)

	for _, err := range []error{
		l.Insert(2, "x"),
		l.RemoveAt(1),
		l.Replace(-1, "x"),
		l.Move(0, 1),
	} {
		assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput), err)
	}
	_, err := l.At(5)
	assert.Error(t, err)
	assert.Empty(t, *got, "failed mutations announce nothing")

	v, err := l.At(0)
	require.NoError(t, err)
	assert.Equal(t, "a", v)
}

func TestList_ObserverErrorReturned(t *testing.T) {
	l := NewList[int]("numbers")
	boom := stderrors.New("boom")
	_, err := l.Changes().Attach(func(Change[int]) error { return boom })
	require.NoError(t, err)

	assert.ErrorIs(t, l.Add(1), boom)
	assert.Equal(t, []int{1}, l.Items(), "the mutation stands")
}

func TestList_ObserverCanReadList(t *testing.T) {
	l := NewList[int]("numbers")
	var lens []int
	_, err := l.Changes().Attach(func(Change[int]) error {
		lens = append(lens, l.Len())
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, l.Add(1))
	require.NoError(t, l.Add(2))
	assert.Equal(t, []int{1, 2}, lens)

	l.Close()
	assert.True(t, errors.IsDisposed(l.Add(3)))
}

func TestList_ConcurrentWritersNotifyInOrder(t *testing.T) {
	l := NewList[int]("numbers")
	var mirror []int
	_, err := l.Changes().Attach(func(c Change[int]) error {
		// Replaying every change must reproduce the list.
		mirror = append(mirror[:c.NewIndex], append(c.NewItems, mirror[c.NewIndex:]...)...)
		return nil
	})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				assert.NoError(t, l.Insert(0, w*100+i))
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, l.Items(), mirror)
}
