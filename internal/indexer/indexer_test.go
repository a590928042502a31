package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/repoctx-mcp/internal/embedder"
	"github.com/dshills/repoctx-mcp/internal/storage"
)

const pythonSource = `def authenticate(username, password):
    token = issue_token(username)
    return token

def issue_token(username):
    return "token-" + username
`

const goSource = `package auth

func Validate(token string) bool {
	return token != ""
}
`

func setupIndexer(t *testing.T) (*Indexer, *storage.SQLiteStorage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	local, err := embedder.NewLocalProvider(embedder.NewCache(100))
	require.NoError(t, err)

	return New(store, local), store
}

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func seedRepoDir(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "app.py", pythonSource)
	writeFile(t, root, "internal/auth.go", goSource)
	return root
}

func TestIndexLocal_FullRun(t *testing.T) {
	idx, store := setupIndexer(t)
	root := seedRepoDir(t)
	ctx := context.Background()

	stats, err := idx.IndexLocal(ctx, root, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.FilesIndexed)
	assert.Zero(t, stats.FilesSkipped)
	assert.Zero(t, stats.FilesFailed)
	assert.Empty(t, stats.ErrorMessages)
	assert.GreaterOrEqual(t, stats.ChunksCreated, 2)
	assert.Equal(t, stats.ChunksCreated, stats.EmbeddingsCreated)
	assert.Equal(t, filepath.Base(root), stats.RepoName)

	repo, err := store.GetRepoByID(ctx, stats.RepoID)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.TotalFiles)
	assert.Equal(t, stats.ChunksCreated, repo.TotalChunks)
	assert.False(t, repo.LastIndexedAt.IsZero())

	status, err := store.GetStatus(ctx, repo.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, status.FilesCount)
	assert.Equal(t, stats.ChunksCreated, status.ChunksCount)
	assert.Equal(t, stats.ChunksCreated, status.EmbeddingsCount)
	assert.True(t, status.Health.EmbeddingsAvailable)
}

func TestIndexLocal_IncrementalSkip(t *testing.T) {
	idx, _ := setupIndexer(t)
	root := seedRepoDir(t)
	ctx := context.Background()

	_, err := idx.IndexLocal(ctx, root, nil)
	require.NoError(t, err)

	stats, err := idx.IndexLocal(ctx, root, nil)
	require.NoError(t, err)
	assert.Zero(t, stats.FilesIndexed)
	assert.Equal(t, 2, stats.FilesSkipped)
	assert.Zero(t, stats.ChunksCreated)
}

func TestIndexLocal_ReindexChangedFile(t *testing.T) {
	idx, store := setupIndexer(t)
	root := seedRepoDir(t)
	ctx := context.Background()

	first, err := idx.IndexLocal(ctx, root, nil)
	require.NoError(t, err)

	writeFile(t, root, "app.py", `def revoke_session(session_id):
    sessions.pop(session_id, None)
    return True
`)

	stats, err := idx.IndexLocal(ctx, root, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.FilesIndexed)
	assert.Equal(t, 1, stats.FilesSkipped)

	file, err := store.GetFile(ctx, first.RepoID, "app.py")
	require.NoError(t, err)
	chunks, err := store.ListChunksByFile(ctx, file.ID)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	for _, c := range chunks {
		assert.Contains(t, c.Content, "revoke_session", "stale chunks must be gone")
		_, err := store.GetEmbedding(ctx, c.ID)
		assert.NoError(t, err, "replacement chunks are re-embedded")
	}
}

func TestIndexLocal_Force(t *testing.T) {
	idx, _ := setupIndexer(t)
	root := seedRepoDir(t)
	ctx := context.Background()

	_, err := idx.IndexLocal(ctx, root, nil)
	require.NoError(t, err)

	stats, err := idx.IndexLocal(ctx, root, &Config{Force: true})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.FilesIndexed)
	assert.Zero(t, stats.FilesSkipped)
}

func TestIndexLocal_PathNotFound(t *testing.T) {
	idx, _ := setupIndexer(t)

	_, err := idx.IndexLocal(context.Background(), "/no/such/path", nil)
	assert.Error(t, err)
}

func TestIndexRepository_InvalidURL(t *testing.T) {
	idx, _ := setupIndexer(t)

	_, err := idx.IndexRepository(context.Background(), "https://gitlab.com/owner/repo", nil)
	assert.Error(t, err)
}

func TestIndexLock(t *testing.T) {
	var lock IndexLock
	assert.True(t, lock.TryAcquire())
	assert.False(t, lock.TryAcquire())
	lock.Release()
	assert.True(t, lock.TryAcquire())
}

func TestIndexLocal_RejectsConcurrentRun(t *testing.T) {
	idx, _ := setupIndexer(t)

	require.True(t, idx.lock.TryAcquire())
	defer idx.lock.Release()

	_, err := idx.IndexLocal(context.Background(), t.TempDir(), nil)
	assert.ErrorIs(t, err, ErrIndexingInProgress)
}

func TestApplyDefaults(t *testing.T) {
	cfg := applyDefaults(nil)
	assert.Greater(t, cfg.Workers, 0)
	assert.Equal(t, 20, cfg.BatchSize)
	assert.Equal(t, embedder.MaxBatchSize, cfg.EmbedBatchSize)

	cfg = applyDefaults(&Config{Workers: 2, BatchSize: 5, EmbedBatchSize: 1000})
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 5, cfg.BatchSize)
	assert.Equal(t, embedder.MaxBatchSize, cfg.EmbedBatchSize)
}
