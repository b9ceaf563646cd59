package report

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRecord() *RunResult {
	return &RunResult{
		ID:        uuid.New().String(),
		State:     "completed",
		Cell:      "echo hi\ndisplay plot.png",
		Stdout:    "hi\n",
		Stderr:    "warning\n",
		Images:    []string{"plot.png"},
		StartedAt: time.Date(2026, 10, 17, 9, 30, 0, 0, time.UTC),
		Duration:  42 * time.Millisecond,
	}
}

// runStoreContract checks the behaviour every Store must share.
func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		rec := newRecord()
		require.NoError(t, store.Save(ctx, rec))

		got, err := store.Load(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, rec.Stdout, got.Stdout)
		assert.Equal(t, rec.Images, got.Images)
		assert.True(t, rec.StartedAt.Equal(got.StartedAt))
		assert.Equal(t, rec.Duration, got.Duration)
	})

	t.Run("Overwrite", func(t *testing.T) {
		rec := newRecord()
		require.NoError(t, store.Save(ctx, rec))
		rec.Stdout = "second\n"
		require.NoError(t, store.Save(ctx, rec))

		got, err := store.Load(ctx, rec.ID)
		require.NoError(t, err)
		assert.Equal(t, "second\n", got.Stdout)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := store.Load(ctx, uuid.New().String())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("InvalidID", func(t *testing.T) {
		_, err := store.Load(ctx, "../../etc/passwd")
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrNotFound)
	})
}

func TestDiskStore_Contract(t *testing.T) {
	runStoreContract(t, NewDiskStore(afero.NewMemMapFs(), "/runs"))
}

func TestDiskStore_OnDisk(t *testing.T) {
	dir := t.TempDir()
	store := NewDiskStore(afero.NewOsFs(), dir+"/nested/runs")
	rec := newRecord()

	require.NoError(t, store.Save(context.Background(), rec))

	exists, err := afero.Exists(afero.NewOsFs(), dir+"/nested/runs/"+rec.ID+".json")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLRUStore_Contract(t *testing.T) {
	runStoreContract(t, NewLRUStore(5, NewDiskStore(afero.NewMemMapFs(), "/runs")))
}

func TestLRUStore_MemoryOnlyContract(t *testing.T) {
	runStoreContract(t, NewLRUStore(5, nil))
}

func TestLRUStore_Evicts(t *testing.T) {
	ctx := context.Background()
	store := NewLRUStore(2, nil)
	a, b, c := newRecord(), newRecord(), newRecord()

	require.NoError(t, store.Save(ctx, a))
	require.NoError(t, store.Save(ctx, b))
	// Touch a so b becomes the least recently used.
	_, err := store.Load(ctx, a.ID)
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, c))

	assert.Equal(t, 2, store.Len())
	_, err = store.Load(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Load(ctx, a.ID)
	assert.NoError(t, err)
}

func TestLRUStore_PromotesFromBacking(t *testing.T) {
	ctx := context.Background()
	back := NewDiskStore(afero.NewMemMapFs(), "/runs")
	rec := newRecord()
	require.NoError(t, back.Save(ctx, rec))

	store := NewLRUStore(2, back)
	got, err := store.Load(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Cell, got.Cell)
	assert.Equal(t, 1, store.Len())
}

func TestRedisStore_Contract(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(client, WithPrefix("test:run:"))
	defer store.Close()

	runStoreContract(t, store)
}

func TestRedisStore_TTL(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	store := NewRedisStore(mr.Addr(), "", 0, WithTTL(time.Minute))
	defer store.Close()
	ctx := context.Background()
	rec := newRecord()
	require.NoError(t, store.Save(ctx, rec))

	assert.Equal(t, time.Minute, mr.TTL("bashdisplay:run:"+rec.ID))

	mr.FastForward(2 * time.Minute)
	_, err = store.Load(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRunResult_Stream(t *testing.T) {
	rec := newRecord()

	out, err := rec.Stream("")
	require.NoError(t, err)
	assert.Equal(t, "hi\n", out)

	out, err = rec.Stream(Stderr)
	require.NoError(t, err)
	assert.Equal(t, "warning\n", out)

	_, err = rec.Stream("stdin")
	assert.Error(t, err)
}

func TestTail(t *testing.T) {
	cases := []struct {
		text string
		n    int
		want string
	}{
		{"a\nb\nc\n", 2, "b\nc\n"},
		{"a\nb\nc", 2, "b\nc"},
		{"a\nb\n", 5, "a\nb\n"},
		{"a\nb\n", 0, "a\nb\n"},
		{"", 3, ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Tail(tc.text, tc.n), "Tail(%q, %d)", tc.text, tc.n)
	}
}
