package handle

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_InsertGetRemove(t *testing.T) {
	r := NewRegistry[string]()
	h := r.Insert("shard")
	require.NotZero(t, h)
	require.Equal(t, 1, r.Len())

	v, err := r.Get(h)
	require.NoError(t, err)
	require.Equal(t, "shard", v)

	v, err = r.Remove(h)
	require.NoError(t, err)
	require.Equal(t, "shard", v)
	require.Equal(t, 0, r.Len())
}

func TestRegistry_NullHandle(t *testing.T) {
	r := NewRegistry[int]()
	_, err := r.Get(0)
	require.ErrorIs(t, err, ErrNullHandle)
	_, err = r.Remove(0)
	require.ErrorIs(t, err, ErrNullHandle)
}

func TestRegistry_DoubleRemove(t *testing.T) {
	r := NewRegistry[int]()
	h := r.Insert(7)
	_, err := r.Remove(h)
	require.NoError(t, err)

	_, err = r.Remove(h)
	require.ErrorIs(t, err, ErrStaleHandle)
	_, err = r.Get(h)
	require.ErrorIs(t, err, ErrStaleHandle)
}

func TestRegistry_SlotReuseRejectsOldHandle(t *testing.T) {
	r := NewRegistry[int]()
	old := r.Insert(1)
	_, err := r.Remove(old)
	require.NoError(t, err)

	fresh := r.Insert(2)
	require.NotEqual(t, old, fresh)
	require.Equal(t, old.index(), fresh.index(), "slot is recycled")

	_, err = r.Get(old)
	require.ErrorIs(t, err, ErrStaleHandle)
	v, err := r.Get(fresh)
	require.NoError(t, err)
	require.Equal(t, 2, v)
}

func TestRegistry_UnknownHandle(t *testing.T) {
	r := NewRegistry[int]()
	r.Insert(1)
	_, err := r.Get(makeHandle(5, 1))
	require.ErrorIs(t, err, ErrStaleHandle)
	_, err = r.Get(makeHandle(0, 9))
	require.ErrorIs(t, err, ErrStaleHandle)
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry[int]()
	var wg sync.WaitGroup
	handles := make([]Handle, 64)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i] = r.Insert(i)
		}(i)
	}
	wg.Wait()
	require.Equal(t, len(handles), r.Len())

	for i, h := range handles {
		wg.Add(1)
		go func(i int, h Handle) {
			defer wg.Done()
			v, err := r.Get(h)
			assert.NoError(t, err)
			assert.Equal(t, i, v)
		}(i, h)
	}
	wg.Wait()
}

func TestLedger(t *testing.T) {
	l := NewLedger()
	l.Track(0x1000, 16)
	l.Track(0x2000, 4)

	n, size := l.Outstanding()
	require.Equal(t, 2, n)
	require.Equal(t, 20, size)

	require.ErrorIs(t, l.Release(0x1000, 15), ErrUnknownBuffer)
	require.NoError(t, l.Release(0x1000, 16))
	require.ErrorIs(t, l.Release(0x1000, 16), ErrUnknownBuffer, "double release")
	require.ErrorIs(t, l.Release(0x3000, 1), ErrUnknownBuffer)
	require.NoError(t, l.Release(0x2000, 4))

	n, size = l.Outstanding()
	require.Zero(t, n)
	require.Zero(t, size)
}
