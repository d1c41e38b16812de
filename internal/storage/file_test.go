package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spigell/resume-agent/internal/model"
	"github.com/spigell/resume-agent/internal/upstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir(), nil, zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestNewFileStoreCreatesCategories(t *testing.T) {
	base := t.TempDir()
	_, err := NewFileStore(base, nil, nil)
	require.NoError(t, err)

	for _, category := range Categories {
		info, err := os.Stat(filepath.Join(base, category))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}

	_, err = NewFileStore("", nil, nil)
	assert.Error(t, err)
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	req := &model.Requirement{ID: "req-1", JobTitle: "Go Developer"}
	req.Normalize()
	require.NoError(t, store.Save(ctx, CategoryRequirements, "req-1", req))

	data, err := os.ReadFile(store.Path(CategoryRequirements, "req-1"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"jobTitle\": \"Go Developer\"")

	var loaded model.Requirement
	require.NoError(t, store.Load(ctx, CategoryRequirements, "req-1", &loaded))
	assert.Equal(t, "Go Developer", loaded.JobTitle)
	assert.NotNil(t, loaded.RequiredSkills)
}

func TestFileStoreLastWriteWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	key := PairKey("cand", "req")

	require.NoError(t, store.Save(ctx, CategoryAnalysis, key, model.AnalysisResult{FitScore: 40}))
	require.NoError(t, store.Save(ctx, CategoryAnalysis, key, model.AnalysisResult{FitScore: 75}))

	var loaded model.AnalysisResult
	require.NoError(t, store.Load(ctx, CategoryAnalysis, key, &loaded))
	assert.Equal(t, 75, loaded.FitScore)

	entries, err := os.ReadDir(filepath.Dir(store.Path(CategoryAnalysis, key)))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestFileStoreConcurrentDistinctKeys(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.Save(ctx, CategoryCandidates, fmt.Sprintf("cand-%d", i), model.CandidateProfile{Name: fmt.Sprint(i)})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	var loaded model.CandidateProfile
	require.NoError(t, store.Load(ctx, CategoryCandidates, "cand-7", &loaded))
	assert.Equal(t, "7", loaded.Name)
}

func TestFileStoreErrors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var out model.Requirement
	err := store.Load(ctx, CategoryRequirements, "missing", &out)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, upstream.Is(err))

	for _, key := range []string{"", "..", "../escape", "a/b"} {
		assert.True(t, upstream.Is(store.Save(ctx, CategoryRequirements, key, out)), "key %q", key)
	}
	assert.Error(t, store.Save(ctx, "unknown", "k", out))

	require.NoError(t, os.WriteFile(store.Path(CategoryRequirements, "broken"), []byte("{"), 0o644))
	assert.True(t, upstream.Is(store.Load(ctx, CategoryRequirements, "broken", &out)))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.True(t, errors.Is(store.Save(cancelled, CategoryRequirements, "k", out), context.Canceled))
}

func TestFileStorePairsWithDashedIDsStaySeparate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, second := PairKey("cand-1", "req"), PairKey("cand", "1-req")
	require.NotEqual(t, first, second)

	require.NoError(t, store.Save(ctx, CategoryAnalysis, first, model.AnalysisResult{FitScore: 30}))
	require.NoError(t, store.Save(ctx, CategoryAnalysis, second, model.AnalysisResult{FitScore: 90}))

	var loaded model.AnalysisResult
	require.NoError(t, store.Load(ctx, CategoryAnalysis, first, &loaded))
	assert.Equal(t, 30, loaded.FitScore)
	require.NoError(t, store.Load(ctx, CategoryAnalysis, second, &loaded))
	assert.Equal(t, 90, loaded.FitScore)
}

func TestValidateID(t *testing.T) {
	for _, id := range []string{"cand-1", "req_2", "3f2b9c1e-7a4d-4c1b-9e0f-123456789abc"} {
		assert.NoError(t, ValidateID(id), id)
	}
	for _, id := range []string{"", "a.b", "..", "a/b", "cand 1"} {
		assert.Error(t, ValidateID(id), id)
	}
	assert.NoError(t, ValidateKey(PairKey("cand-1", "req-1")))
}
