package inmemoryfingerprints

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/specialistvlad/buildgridgo/internal/fingerprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveLoadDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	fp := &fingerprint.Fingerprint{Task: ":compile", InputHash: "h", Inputs: map[string]string{"a": "1"}}

	_, err := s.Load(ctx, ":compile")
	require.ErrorIs(t, err, fingerprint.ErrNotFound)

	require.NoError(t, s.Save(ctx, fp))
	fp.Inputs["a"] = "mutated"
	got, err := s.Load(ctx, ":compile")
	require.NoError(t, err)
	assert.Equal(t, "1", got.Inputs["a"], "stored copy must not alias the caller's map")

	require.NoError(t, s.Delete(ctx, ":compile"))
	require.NoError(t, s.Delete(ctx, ":compile"))
	_, err = s.Load(ctx, ":compile")
	assert.ErrorIs(t, err, fingerprint.ErrNotFound)
	assert.NoError(t, s.Close())
}

func TestStore_ConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			task := fmt.Sprintf(":t%d", i)
			assert.NoError(t, s.Save(ctx, &fingerprint.Fingerprint{Task: task}))
			_, err := s.Load(ctx, task)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 50, s.Len())
}
