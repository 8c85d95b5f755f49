package settings

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/tabtrail/internal/storage"
)

func TestLoadDefaultsWhenMissing(t *testing.T) {
	s := NewStore(storage.NewMemoryBackend())
	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Default(), got)
}

func TestSaveThenLoad(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemoryBackend())

	want := Settings{GroupByDomain: true, ShowClosed: false, Filter: "video"}
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveRejectsUnknownFilter(t *testing.T) {
	ctx := context.Background()
	s := NewStore(storage.NewMemoryBackend())

	err := s.Save(ctx, Settings{Filter: "bogus"})
	require.ErrorContains(t, err, `unknown filter "bogus"`)

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Default(), got, "nothing stored")

	require.NoError(t, s.Save(ctx, Settings{Filter: ""}))
	require.NoError(t, s.Save(ctx, Settings{Filter: "today"}))
}

func TestPartialBlobKeepsDefaults(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	require.NoError(t, backend.Set(ctx, Key, []byte(`{"groupByDomain":true}`)))

	got, err := NewStore(backend).Load(ctx)
	require.NoError(t, err)
	assert.True(t, got.GroupByDomain)
	assert.True(t, got.ShowClosed)
	assert.Equal(t, "all", got.Filter)
}

func TestCorruptBlobFallsBack(t *testing.T) {
	ctx := context.Background()
	backend := storage.NewMemoryBackend()
	require.NoError(t, backend.Set(ctx, Key, []byte(`nope`)))

	got, err := NewStore(backend).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, Default(), got)
}

func TestBackendErrorSurfaces(t *testing.T) {
	backend := storage.NewMemoryBackend()
	boom := errors.New("io")
	backend.FailWith(boom)

	_, err := NewStore(backend).Load(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, NewStore(backend).Save(context.Background(), Default()), boom)
}
