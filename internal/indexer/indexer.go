package indexer

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/repoctx-mcp/internal/chunker"
	"github.com/dshills/repoctx-mcp/internal/embedder"
	"github.com/dshills/repoctx-mcp/internal/ingest"
	"github.com/dshills/repoctx-mcp/internal/storage"
	"github.com/dshills/repoctx-mcp/pkg/types"
)

// ErrIndexingInProgress is returned when an indexing run is already active
var ErrIndexingInProgress = errors.New("indexing already in progress")

// Indexer coordinates the indexing pipeline: ingest -> chunk -> embed -> store
type Indexer struct {
	ingestor *ingest.Service
	chunker  *chunker.Chunker
	embedder embedder.Embedder
	storage  storage.Storage
	logger   *slog.Logger

	workers int
	lock    IndexLock
}

// Config contains configuration for an indexing run
type Config struct {
	Workers        int  // Number of concurrent workers (default: runtime.NumCPU())
	BatchSize      int  // Number of files to commit per transaction (default: 20)
	EmbedBatchSize int  // Texts per embedding API call (default/max: embedder.MaxBatchSize)
	Force          bool // Reindex files even when the content hash is unchanged
}

// Statistics describes a completed indexing run
type Statistics struct {
	RepoID            int64
	RepoName          string
	FilesIndexed      int
	FilesSkipped      int
	FilesFailed       int
	ChunksCreated     int
	EmbeddingsCreated int
	Duration          time.Duration
	ErrorMessages     []string
}

// New creates a new Indexer instance
func New(store storage.Storage, emb embedder.Embedder) *Indexer {
	return NewWithLogger(store, emb, slog.Default())
}

// NewWithLogger creates an Indexer with a custom logger
func NewWithLogger(store storage.Storage, emb embedder.Embedder, logger *slog.Logger) *Indexer {
	return &Indexer{
		ingestor: ingest.NewWithLogger(logger),
		chunker:  chunker.NewWithLogger(logger),
		embedder: emb,
		storage:  store,
		logger:   logger,
		workers:  runtime.NumCPU(),
	}
}

// IndexRepository clones a GitHub repository and indexes its source files
func (idx *Indexer) IndexRepository(ctx context.Context, repoURL string, config *Config) (*Statistics, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrIndexingInProgress
	}
	defer idx.lock.Release()

	files, err := idx.ingestor.IngestRepository(ctx, repoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to ingest repository: %w", err)
	}

	return idx.index(ctx, ingest.RepoName(repoURL), repoURL, files, config)
}

// IndexLocal indexes a repository from a local directory
func (idx *Indexer) IndexLocal(ctx context.Context, repoPath string, config *Config) (*Statistics, error) {
	if !idx.lock.TryAcquire() {
		return nil, ErrIndexingInProgress
	}
	defer idx.lock.Release()

	files, err := idx.ingestor.IngestLocal(ctx, repoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to ingest local path: %w", err)
	}

	absPath, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	return idx.index(ctx, filepath.Base(absPath), "", files, config)
}

// index runs the chunk/embed/store pipeline over ingested files
func (idx *Indexer) index(ctx context.Context, repoName, repoURL string, files []*types.SourceFile, config *Config) (*Statistics, error) {
	config = applyDefaults(config)
	idx.workers = config.Workers

	startTime := time.Now()
	stats := &Statistics{
		RepoName:      repoName,
		ErrorMessages: make([]string, 0),
	}

	repo, err := idx.getOrCreateRepo(ctx, repoName, repoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get or create repo: %w", err)
	}
	stats.RepoID = repo.ID

	idx.logger.Info("indexing started", "repo", repoName, "files", len(files))

	if err := idx.indexFiles(ctx, repo, files, config, stats); err != nil {
		return nil, fmt.Errorf("failed to index files: %w", err)
	}

	if err := idx.updateRepoStats(ctx, repo); err != nil {
		return nil, fmt.Errorf("failed to update repo stats: %w", err)
	}

	stats.Duration = time.Since(startTime)
	idx.logger.Info("indexing finished",
		"repo", repoName,
		"indexed", stats.FilesIndexed,
		"skipped", stats.FilesSkipped,
		"failed", stats.FilesFailed,
		"chunks", stats.ChunksCreated,
		"duration", stats.Duration)

	return stats, nil
}

func applyDefaults(config *Config) *Config {
	if config == nil {
		config = &Config{}
	}
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if config.BatchSize <= 0 {
		config.BatchSize = 20
	}
	if config.EmbedBatchSize <= 0 || config.EmbedBatchSize > embedder.MaxBatchSize {
		config.EmbedBatchSize = embedder.MaxBatchSize
	}
	return config
}

// getOrCreateRepo retrieves an existing repo record or creates a new one
func (idx *Indexer) getOrCreateRepo(ctx context.Context, name, url string) (*storage.Repo, error) {
	repo, err := idx.storage.GetRepo(ctx, name)
	if err == nil {
		return repo, nil
	}
	if err != storage.ErrNotFound {
		return nil, err
	}

	repo = &storage.Repo{
		Name:         name,
		URL:          url,
		IndexVersion: storage.CurrentSchemaVersion,
	}
	if err := idx.storage.CreateRepo(ctx, repo); err != nil {
		return nil, err
	}
	return repo, nil
}

// indexFiles processes files concurrently in transactional batches
func (idx *Indexer) indexFiles(ctx context.Context, repo *storage.Repo, files []*types.SourceFile, config *Config, stats *Statistics) error {
	semaphore := make(chan struct{}, idx.workers)

	var (
		indexed    int32
		skipped    int32
		failed     int32
		chunks     int32
		embeddings int32
	)

	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex // Protects stats.ErrorMessages

	for i := 0; i < len(files); i += config.BatchSize {
		end := i + config.BatchSize
		if end > len(files) {
			end = len(files)
		}
		batch := files[i:end]

		g.Go(func() error {
			return idx.indexBatch(gctx, repo, batch, config, semaphore,
				&indexed, &skipped, &failed, &chunks, &embeddings, &mu, stats)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	stats.FilesIndexed = int(indexed)
	stats.FilesSkipped = int(skipped)
	stats.FilesFailed = int(failed)
	stats.ChunksCreated = int(chunks)
	stats.EmbeddingsCreated = int(embeddings)

	return nil
}

// indexBatch indexes a batch of files within one transaction. A failing
// file is recorded and skipped; the rest of the batch still commits.
func (idx *Indexer) indexBatch(ctx context.Context, repo *storage.Repo, files []*types.SourceFile,
	config *Config, semaphore chan struct{},
	indexed, skipped, failed, chunks, embeddings *int32,
	mu *sync.Mutex, stats *Statistics) error {

	tx, err := idx.storage.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, file := range files {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case semaphore <- struct{}{}:
		}

		err := idx.indexFile(ctx, tx, repo, file, config, indexed, skipped, chunks, embeddings)
		<-semaphore

		if err != nil {
			atomic.AddInt32(failed, 1)
			mu.Lock()
			stats.ErrorMessages = append(stats.ErrorMessages, fmt.Sprintf("%s: %v", file.FilePath, err))
			mu.Unlock()
			continue
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// indexFile chunks, embeds, and stores a single source file
func (idx *Indexer) indexFile(ctx context.Context, store storage.Storage, repo *storage.Repo,
	file *types.SourceFile, config *Config, indexed, skipped, chunks, embeddings *int32) error {

	hash := sha256.Sum256([]byte(file.Content))

	shouldSkip, err := idx.checkFileChanged(ctx, store, repo.ID, file.FilePath, hash, config.Force, skipped)
	if err != nil {
		return err
	}
	if shouldSkip {
		return nil
	}

	record := &storage.File{
		RepoID:       repo.ID,
		FilePath:     file.FilePath,
		Language:     file.Language,
		ContentHash:  hash,
		SizeBytes:    file.SizeBytes,
		LastModified: file.LastModified,
	}
	if err := store.UpsertFile(ctx, record); err != nil {
		return err
	}

	fileChunks := idx.chunker.Chunk(file)

	stored := make([]*storage.Chunk, 0, len(fileChunks))
	for _, chunk := range fileChunks {
		storageChunk := &storage.Chunk{
			ID:          chunk.ID,
			FileID:      record.ID,
			Content:     chunk.Content,
			ContentHash: chunk.ContentHash(),
			StartLine:   chunk.StartLine,
			EndLine:     chunk.EndLine,
			Language:    chunk.Language,
			ChunkType:   chunk.ChunkType,
			Metadata:    chunk.Metadata,
		}
		if err := store.UpsertChunk(ctx, storageChunk); err != nil {
			return fmt.Errorf("failed to store chunk: %w", err)
		}
		stored = append(stored, storageChunk)
	}

	embedded, err := idx.embedChunks(ctx, store, stored, config.EmbedBatchSize)
	if err != nil {
		return err
	}

	atomic.AddInt32(indexed, 1)
	atomic.AddInt32(chunks, int32(len(stored)))
	atomic.AddInt32(embeddings, int32(embedded))

	return nil
}

// embedChunks generates and stores embeddings in batches
func (idx *Indexer) embedChunks(ctx context.Context, store storage.Storage, chunks []*storage.Chunk, batchSize int) (int, error) {
	embedded := 0
	for i := 0; i < len(chunks); i += batchSize {
		end := i + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[i:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Content
		}

		resp, err := idx.embedder.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{Texts: texts})
		if err != nil {
			return embedded, fmt.Errorf("failed to generate embeddings: %w", err)
		}
		if len(resp.Embeddings) != len(batch) {
			return embedded, fmt.Errorf("embedding count mismatch: got %d for %d chunks", len(resp.Embeddings), len(batch))
		}

		for j, emb := range resp.Embeddings {
			if err := store.UpsertEmbedding(ctx, &storage.Embedding{
				ChunkID:   batch[j].ID,
				Vector:    storage.SerializeVector(emb.Vector),
				Dimension: emb.Dimension,
				Provider:  emb.Provider,
				Model:     emb.Model,
			}); err != nil {
				return embedded, fmt.Errorf("failed to store embedding: %w", err)
			}
			embedded++
		}
	}
	return embedded, nil
}

// checkFileChanged decides whether a file needs re-indexing. Changed files
// have their old chunks deleted first; embeddings cascade with them.
func (idx *Indexer) checkFileChanged(ctx context.Context, store storage.Storage, repoID int64,
	relPath string, hash [32]byte, force bool, skipped *int32) (bool, error) {

	existing, err := store.GetFile(ctx, repoID, relPath)
	if err == storage.ErrNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if existing.ContentHash == hash && !force {
		atomic.AddInt32(skipped, 1)
		return true, nil
	}

	if err := store.DeleteChunksByFile(ctx, existing.ID); err != nil {
		return false, fmt.Errorf("failed to delete old chunks: %w", err)
	}
	return false, nil
}

// updateRepoStats refreshes the repo's file and chunk counts
func (idx *Indexer) updateRepoStats(ctx context.Context, repo *storage.Repo) error {
	files, err := idx.storage.ListFiles(ctx, repo.ID)
	if err != nil {
		return err
	}

	totalChunks := 0
	for _, file := range files {
		chunks, err := idx.storage.ListChunksByFile(ctx, file.ID)
		if err != nil {
			return err
		}
		totalChunks += len(chunks)
	}

	repo.TotalFiles = len(files)
	repo.TotalChunks = totalChunks
	repo.LastIndexedAt = time.Now()

	return idx.storage.UpdateRepo(ctx, repo)
}
