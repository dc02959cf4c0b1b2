package loadercache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/iracelog-league-stats/pkg/utils/cache"
)

type countingLoader struct {
	calls int
	value int
}

func (l *countingLoader) load(ctx context.Context, key string) (int, error) {
	l.calls++
	return l.value, nil
}

func TestGetCachesValue(t *testing.T) {
	loader := &countingLoader{value: 42}
	c := New(WithLoader[string, int](loader.load))

	for range 3 {
		v, err := c.Get(context.Background(), "career")
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	}
	assert.Equal(t, 1, loader.calls)
}

func TestInvalidate(t *testing.T) {
	loader := &countingLoader{value: 1}
	c := New(WithLoader[string, int](loader.load))
	_, err := c.Get(context.Background(), "career")
	require.NoError(t, err)

	loader.value = 2
	c.Invalidate("career")
	v, err := c.Get(context.Background(), "career")
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	loader.value = 3
	c.InvalidateAll()
	v, err = c.Get(context.Background(), "career")
	require.NoError(t, err)
	assert.Equal(t, 3, v)
	assert.Equal(t, 3, loader.calls)
}

func TestExpiration(t *testing.T) {
	loader := &countingLoader{value: 1}
	c := New(
		WithLoader[string, int](loader.load),
		WithExpiration[string, int](time.Millisecond))
	_, err := c.Get(context.Background(), "career")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)
	_, err = c.Get(context.Background(), "career")
	require.NoError(t, err)
	assert.Equal(t, 2, loader.calls)
}

func TestInvalidateDuringLoadDiscardsValue(t *testing.T) {
	var c cache.Cache[string, int]
	calls := 0
	c = New(WithLoader[string, int](func(ctx context.Context, key string) (int, error) {
		calls++
		if calls == 1 {
			// a writer finished while this load was running
			c.Invalidate(key)
			return 1, nil
		}
		return 2, nil
	}))

	v, err := c.Get(context.Background(), "career")
	require.NoError(t, err)
	assert.Equal(t, 1, v, "the loading caller still gets its value")

	v, err = c.Get(context.Background(), "career")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, calls)
}

func TestLoaderError(t *testing.T) {
	errLoad := errors.New("boom")
	c := New(WithLoader[string, int](func(ctx context.Context, key string) (int, error) {
		return 0, errLoad
	}))
	_, err := c.Get(context.Background(), "career")
	assert.ErrorIs(t, err, errLoad)
}

func TestWithoutLoader(t *testing.T) {
	c := New[string, int]()
	_, err := c.Get(context.Background(), "career")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
}
