package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// SQLite benefits from a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Repository operations

func (s *SQLiteStorage) createRepoWithQuerier(ctx context.Context, q querier, repo *Repo) error {
	query := `
		INSERT INTO repos (name, url, index_version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := q.ExecContext(ctx, query,
		repo.Name, repo.URL, repo.IndexVersion, now, now)
	if err != nil {
		return fmt.Errorf("failed to create repo: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	repo.ID = id
	repo.CreatedAt = now
	repo.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateRepo(ctx context.Context, repo *Repo) error {
	return s.createRepoWithQuerier(ctx, s.db, repo)
}

func scanRepo(row *sql.Row) (*Repo, error) {
	var repo Repo
	var lastIndexedAt sql.NullTime
	err := row.Scan(
		&repo.ID, &repo.Name, &repo.URL, &repo.TotalFiles, &repo.TotalChunks,
		&repo.IndexVersion, &lastIndexedAt, &repo.CreatedAt, &repo.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastIndexedAt.Valid {
		repo.LastIndexedAt = lastIndexedAt.Time
	}
	return &repo, nil
}

const repoColumns = `id, name, url, total_files, total_chunks, index_version, last_indexed_at, created_at, updated_at`

func (s *SQLiteStorage) getRepoWithQuerier(ctx context.Context, q querier, name string) (*Repo, error) {
	query := `SELECT ` + repoColumns + ` FROM repos WHERE name = ?`
	return scanRepo(q.QueryRowContext(ctx, query, name))
}

func (s *SQLiteStorage) GetRepo(ctx context.Context, name string) (*Repo, error) {
	return s.getRepoWithQuerier(ctx, s.db, name)
}

func (s *SQLiteStorage) getRepoByIDWithQuerier(ctx context.Context, q querier, repoID int64) (*Repo, error) {
	query := `SELECT ` + repoColumns + ` FROM repos WHERE id = ?`
	return scanRepo(q.QueryRowContext(ctx, query, repoID))
}

func (s *SQLiteStorage) GetRepoByID(ctx context.Context, repoID int64) (*Repo, error) {
	return s.getRepoByIDWithQuerier(ctx, s.db, repoID)
}

func (s *SQLiteStorage) updateRepoWithQuerier(ctx context.Context, q querier, repo *Repo) error {
	query := `
		UPDATE repos
		SET url = ?, total_files = ?, total_chunks = ?, last_indexed_at = ?, updated_at = ?
		WHERE id = ?
	`
	now := time.Now()
	_, err := q.ExecContext(ctx, query,
		repo.URL, repo.TotalFiles, repo.TotalChunks, repo.LastIndexedAt, now, repo.ID)
	if err != nil {
		return fmt.Errorf("failed to update repo: %w", err)
	}
	repo.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpdateRepo(ctx context.Context, repo *Repo) error {
	return s.updateRepoWithQuerier(ctx, s.db, repo)
}

func (s *SQLiteStorage) listReposWithQuerier(ctx context.Context, q querier) ([]*Repo, error) {
	query := `SELECT ` + repoColumns + ` FROM repos ORDER BY name`
	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list repos: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var repos []*Repo
	for rows.Next() {
		var repo Repo
		var lastIndexedAt sql.NullTime
		if err := rows.Scan(
			&repo.ID, &repo.Name, &repo.URL, &repo.TotalFiles, &repo.TotalChunks,
			&repo.IndexVersion, &lastIndexedAt, &repo.CreatedAt, &repo.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if lastIndexedAt.Valid {
			repo.LastIndexedAt = lastIndexedAt.Time
		}
		repos = append(repos, &repo)
	}
	return repos, rows.Err()
}

func (s *SQLiteStorage) ListRepos(ctx context.Context) ([]*Repo, error) {
	return s.listReposWithQuerier(ctx, s.db)
}

func (s *SQLiteStorage) deleteRepoWithQuerier(ctx context.Context, q querier, repoID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM repos WHERE id = ?`, repoID)
	if err != nil {
		return fmt.Errorf("failed to delete repo: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) DeleteRepo(ctx context.Context, repoID int64) error {
	return s.deleteRepoWithQuerier(ctx, s.db, repoID)
}

// File operations

func (s *SQLiteStorage) upsertFileWithQuerier(ctx context.Context, q querier, file *File) error {
	query := `
		INSERT INTO files (repo_id, file_path, language, content_hash, size_bytes, last_modified, last_indexed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(repo_id, file_path) DO UPDATE SET
			language = excluded.language,
			content_hash = excluded.content_hash,
			size_bytes = excluded.size_bytes,
			last_modified = excluded.last_modified,
			last_indexed_at = excluded.last_indexed_at,
			updated_at = excluded.updated_at
		RETURNING id
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		file.RepoID, file.FilePath, file.Language, file.ContentHash[:],
		file.SizeBytes, file.LastModified, now, now, now).Scan(&file.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert file: %w", err)
	}

	file.LastIndexedAt = now
	file.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertFile(ctx context.Context, file *File) error {
	return s.upsertFileWithQuerier(ctx, s.db, file)
}

func (s *SQLiteStorage) getFileWithQuerier(ctx context.Context, q querier, repoID int64, filePath string) (*File, error) {
	query := `
		SELECT id, repo_id, file_path, language, content_hash, size_bytes,
		       last_modified, last_indexed_at, created_at, updated_at
		FROM files
		WHERE repo_id = ? AND file_path = ?
	`
	var file File
	var hash []byte
	err := q.QueryRowContext(ctx, query, repoID, filePath).Scan(
		&file.ID, &file.RepoID, &file.FilePath, &file.Language,
		&hash, &file.SizeBytes, &file.LastModified,
		&file.LastIndexedAt, &file.CreatedAt, &file.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	copy(file.ContentHash[:], hash)
	return &file, nil
}

func (s *SQLiteStorage) GetFile(ctx context.Context, repoID int64, filePath string) (*File, error) {
	return s.getFileWithQuerier(ctx, s.db, repoID, filePath)
}

func (s *SQLiteStorage) listFilesWithQuerier(ctx context.Context, q querier, repoID int64) ([]*File, error) {
	query := `
		SELECT id, repo_id, file_path, language, content_hash, size_bytes,
		       last_modified, last_indexed_at, created_at, updated_at
		FROM files
		WHERE repo_id = ?
		ORDER BY file_path
	`
	rows, err := q.QueryContext(ctx, query, repoID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var files []*File
	for rows.Next() {
		var file File
		var hash []byte
		if err := rows.Scan(
			&file.ID, &file.RepoID, &file.FilePath, &file.Language,
			&hash, &file.SizeBytes, &file.LastModified,
			&file.LastIndexedAt, &file.CreatedAt, &file.UpdatedAt,
		); err != nil {
			return nil, err
		}
		copy(file.ContentHash[:], hash)
		files = append(files, &file)
	}
	return files, rows.Err()
}

func (s *SQLiteStorage) ListFiles(ctx context.Context, repoID int64) ([]*File, error) {
	return s.listFilesWithQuerier(ctx, s.db, repoID)
}

func (s *SQLiteStorage) deleteFileWithQuerier(ctx context.Context, q querier, fileID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM files WHERE id = ?`, fileID)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) DeleteFile(ctx context.Context, fileID int64) error {
	return s.deleteFileWithQuerier(ctx, s.db, fileID)
}

// Chunk operations

func marshalMetadata(metadata map[string]any) (string, error) {
	if len(metadata) == 0 {
		return "", nil
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chunk metadata: %w", err)
	}
	return string(data), nil
}

func unmarshalMetadata(raw sql.NullString) (map[string]any, error) {
	if !raw.Valid || raw.String == "" {
		return nil, nil
	}
	var metadata map[string]any
	if err := json.Unmarshal([]byte(raw.String), &metadata); err != nil {
		return nil, fmt.Errorf("failed to unmarshal chunk metadata: %w", err)
	}
	return metadata, nil
}

func (s *SQLiteStorage) upsertChunkWithQuerier(ctx context.Context, q querier, chunk *Chunk) error {
	metadata, err := marshalMetadata(chunk.Metadata)
	if err != nil {
		return err
	}

	// On conflict the stored UUID wins so embeddings keyed on it stay valid;
	// the caller's chunk takes on the canonical ID via RETURNING.
	query := `
		INSERT INTO chunks (id, file_id, content, content_hash, start_line, end_line, language, chunk_type, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(file_id, start_line, end_line, chunk_type) DO UPDATE SET
			content = excluded.content,
			content_hash = excluded.content_hash,
			language = excluded.language,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at
		RETURNING id
	`
	now := time.Now()
	err = q.QueryRowContext(ctx, query,
		chunk.ID, chunk.FileID, chunk.Content, chunk.ContentHash[:],
		chunk.StartLine, chunk.EndLine, chunk.Language, chunk.ChunkType,
		metadata, now, now).Scan(&chunk.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert chunk: %w", err)
	}

	chunk.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertChunk(ctx context.Context, chunk *Chunk) error {
	return s.upsertChunkWithQuerier(ctx, s.db, chunk)
}

const chunkColumns = `c.id, c.file_id, f.file_path, c.content, c.content_hash, c.start_line, c.end_line, c.language, c.chunk_type, c.metadata, c.created_at, c.updated_at`

const chunkFrom = ` FROM chunks c INNER JOIN files f ON c.file_id = f.id`

func scanChunkRow(scan func(dest ...any) error) (*Chunk, error) {
	var chunk Chunk
	var hash []byte
	var metadata sql.NullString
	err := scan(
		&chunk.ID, &chunk.FileID, &chunk.FilePath, &chunk.Content, &hash,
		&chunk.StartLine, &chunk.EndLine, &chunk.Language, &chunk.ChunkType,
		&metadata, &chunk.CreatedAt, &chunk.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	copy(chunk.ContentHash[:], hash)
	chunk.Metadata, err = unmarshalMetadata(metadata)
	if err != nil {
		return nil, err
	}
	return &chunk, nil
}

func (s *SQLiteStorage) getChunkWithQuerier(ctx context.Context, q querier, chunkID string) (*Chunk, error) {
	query := `SELECT ` + chunkColumns + chunkFrom + ` WHERE c.id = ?`
	row := q.QueryRowContext(ctx, query, chunkID)
	return scanChunkRow(row.Scan)
}

func (s *SQLiteStorage) GetChunk(ctx context.Context, chunkID string) (*Chunk, error) {
	return s.getChunkWithQuerier(ctx, s.db, chunkID)
}

func (s *SQLiteStorage) getChunksWithQuerier(ctx context.Context, q querier, chunkIDs []string) ([]*Chunk, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}

	query := `SELECT ` + chunkColumns + chunkFrom + ` WHERE c.id IN (`
	args := make([]interface{}, len(chunkIDs))
	for i, id := range chunkIDs {
		if i > 0 {
			query += ","
		}
		query += "?"
		args[i] = id
	}
	query += ")"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[string]*Chunk, len(chunkIDs))
	for rows.Next() {
		chunk, err := scanChunkRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		byID[chunk.ID] = chunk
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Preserve the requested order; missing IDs are silently dropped
	chunks := make([]*Chunk, 0, len(byID))
	for _, id := range chunkIDs {
		if chunk, ok := byID[id]; ok {
			chunks = append(chunks, chunk)
		}
	}
	return chunks, nil
}

func (s *SQLiteStorage) GetChunks(ctx context.Context, chunkIDs []string) ([]*Chunk, error) {
	return s.getChunksWithQuerier(ctx, s.db, chunkIDs)
}

func (s *SQLiteStorage) listChunksByFileWithQuerier(ctx context.Context, q querier, fileID int64) ([]*Chunk, error) {
	query := `SELECT ` + chunkColumns + chunkFrom + ` WHERE c.file_id = ? ORDER BY c.start_line`
	rows, err := q.QueryContext(ctx, query, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var chunks []*Chunk
	for rows.Next() {
		chunk, err := scanChunkRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func (s *SQLiteStorage) ListChunksByFile(ctx context.Context, fileID int64) ([]*Chunk, error) {
	return s.listChunksByFileWithQuerier(ctx, s.db, fileID)
}

func (s *SQLiteStorage) deleteChunksByFileWithQuerier(ctx context.Context, q querier, fileID int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM chunks WHERE file_id = ?`, fileID)
	if err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) DeleteChunksByFile(ctx context.Context, fileID int64) error {
	return s.deleteChunksByFileWithQuerier(ctx, s.db, fileID)
}

// Embedding operations

func (s *SQLiteStorage) upsertEmbeddingWithQuerier(ctx context.Context, q querier, embedding *Embedding) error {
	query := `
		INSERT INTO embeddings (chunk_id, vector, dimension, provider, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model
		RETURNING id
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		embedding.ChunkID, embedding.Vector, embedding.Dimension,
		embedding.Provider, embedding.Model, now).Scan(&embedding.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return s.upsertEmbeddingWithQuerier(ctx, s.db, embedding)
}

func (s *SQLiteStorage) getEmbeddingWithQuerier(ctx context.Context, q querier, chunkID string) (*Embedding, error) {
	query := `
		SELECT id, chunk_id, vector, dimension, provider, model, created_at
		FROM embeddings
		WHERE chunk_id = ?
	`
	var emb Embedding
	err := q.QueryRowContext(ctx, query, chunkID).Scan(
		&emb.ID, &emb.ChunkID, &emb.Vector, &emb.Dimension,
		&emb.Provider, &emb.Model, &emb.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &emb, nil
}

func (s *SQLiteStorage) GetEmbedding(ctx context.Context, chunkID string) (*Embedding, error) {
	return s.getEmbeddingWithQuerier(ctx, s.db, chunkID)
}

// Search operations

func (s *SQLiteStorage) SearchVector(ctx context.Context, repoID int64, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	return searchVector(ctx, s.db, repoID, vector, limit, filters)
}

// Query cache operations

func (s *SQLiteStorage) cacheQueryWithQuerier(ctx context.Context, q querier, entry *CachedQuery) error {
	ids, err := json.Marshal(entry.ResultChunkIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal result chunk ids: %w", err)
	}

	query := `
		INSERT INTO search_queries (query_text, query_hash, result_chunk_ids, result_count, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(query_hash) DO UPDATE SET
			result_chunk_ids = excluded.result_chunk_ids,
			result_count = excluded.result_count,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
		RETURNING id
	`
	// Entries without an expiry are stored as NULL and never pruned
	var expiresAt interface{}
	if !entry.ExpiresAt.IsZero() {
		expiresAt = entry.ExpiresAt
	}

	now := time.Now()
	err = q.QueryRowContext(ctx, query,
		entry.QueryText, entry.QueryHash, string(ids), len(entry.ResultChunkIDs),
		now, expiresAt).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("failed to cache query: %w", err)
	}
	entry.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) CacheQuery(ctx context.Context, entry *CachedQuery) error {
	return s.cacheQueryWithQuerier(ctx, s.db, entry)
}

func (s *SQLiteStorage) getCachedQueryWithQuerier(ctx context.Context, q querier, queryHash []byte) (*CachedQuery, error) {
	query := `
		SELECT id, query_text, query_hash, result_chunk_ids, hit_count, created_at, expires_at
		FROM search_queries
		WHERE query_hash = ?
	`
	var entry CachedQuery
	var ids string
	var expiresAt sql.NullTime
	err := q.QueryRowContext(ctx, query, queryHash).Scan(
		&entry.ID, &entry.QueryText, &entry.QueryHash, &ids,
		&entry.HitCount, &entry.CreatedAt, &expiresAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		entry.ExpiresAt = expiresAt.Time
	}

	if !entry.ExpiresAt.IsZero() && time.Now().After(entry.ExpiresAt) {
		return nil, ErrNotFound
	}

	if err := json.Unmarshal([]byte(ids), &entry.ResultChunkIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result chunk ids: %w", err)
	}

	// Best-effort hit counting
	_, _ = q.ExecContext(ctx, `UPDATE search_queries SET hit_count = hit_count + 1 WHERE id = ?`, entry.ID)
	entry.HitCount++

	return &entry, nil
}

func (s *SQLiteStorage) GetCachedQuery(ctx context.Context, queryHash []byte) (*CachedQuery, error) {
	return s.getCachedQueryWithQuerier(ctx, s.db, queryHash)
}

func (s *SQLiteStorage) pruneQueryCacheWithQuerier(ctx context.Context, q querier, now time.Time) (int, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM search_queries WHERE expires_at IS NOT NULL AND expires_at < ?`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to prune query cache: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (s *SQLiteStorage) PruneQueryCache(ctx context.Context, now time.Time) (int, error) {
	return s.pruneQueryCacheWithQuerier(ctx, s.db, now)
}

// Status operations

func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier, repoID int64) (*RepoStatus, error) {
	repo, err := s.getRepoByIDWithQuerier(ctx, q, repoID)
	if err != nil {
		return nil, err
	}

	status := &RepoStatus{
		Repo:          repo,
		LastIndexedAt: repo.LastIndexedAt,
		Health: HealthStatus{
			DatabaseAccessible: true,
			VectorSearchNative: VectorExtensionAvailable,
		},
	}

	err = q.QueryRowContext(ctx, `SELECT COUNT(*) FROM files WHERE repo_id = ?`, repoID).Scan(&status.FilesCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count files: %w", err)
	}

	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM chunks c
		INNER JOIN files f ON c.file_id = f.id
		WHERE f.repo_id = ?
	`, repoID).Scan(&status.ChunksCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count chunks: %w", err)
	}

	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM embeddings e
		INNER JOIN chunks c ON e.chunk_id = c.id
		INNER JOIN files f ON c.file_id = f.id
		WHERE f.repo_id = ?
	`, repoID).Scan(&status.EmbeddingsCount)
	if err != nil {
		return nil, fmt.Errorf("failed to count embeddings: %w", err)
	}
	status.Health.EmbeddingsAvailable = status.EmbeddingsCount > 0

	var pageCount, pageSize float64
	if err := q.QueryRowContext(ctx, `PRAGMA page_count`).Scan(&pageCount); err == nil {
		if err := q.QueryRowContext(ctx, `PRAGMA page_size`).Scan(&pageSize); err == nil {
			status.IndexSizeMB = pageCount * pageSize / (1024 * 1024)
		}
	}

	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context, repoID int64) (*RepoStatus, error) {
	return s.getStatusWithQuerier(ctx, s.db, repoID)
}

// sqliteTx wraps a SQL transaction and exposes the full Storage interface on
// top of it
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

func (t *sqliteTx) CreateRepo(ctx context.Context, repo *Repo) error {
	return t.storage.createRepoWithQuerier(ctx, t.tx, repo)
}

func (t *sqliteTx) GetRepo(ctx context.Context, name string) (*Repo, error) {
	return t.storage.getRepoWithQuerier(ctx, t.tx, name)
}

func (t *sqliteTx) GetRepoByID(ctx context.Context, repoID int64) (*Repo, error) {
	return t.storage.getRepoByIDWithQuerier(ctx, t.tx, repoID)
}

func (t *sqliteTx) UpdateRepo(ctx context.Context, repo *Repo) error {
	return t.storage.updateRepoWithQuerier(ctx, t.tx, repo)
}

func (t *sqliteTx) ListRepos(ctx context.Context) ([]*Repo, error) {
	return t.storage.listReposWithQuerier(ctx, t.tx)
}

func (t *sqliteTx) DeleteRepo(ctx context.Context, repoID int64) error {
	return t.storage.deleteRepoWithQuerier(ctx, t.tx, repoID)
}

func (t *sqliteTx) UpsertFile(ctx context.Context, file *File) error {
	return t.storage.upsertFileWithQuerier(ctx, t.tx, file)
}

func (t *sqliteTx) GetFile(ctx context.Context, repoID int64, filePath string) (*File, error) {
	return t.storage.getFileWithQuerier(ctx, t.tx, repoID, filePath)
}

func (t *sqliteTx) ListFiles(ctx context.Context, repoID int64) ([]*File, error) {
	return t.storage.listFilesWithQuerier(ctx, t.tx, repoID)
}

func (t *sqliteTx) DeleteFile(ctx context.Context, fileID int64) error {
	return t.storage.deleteFileWithQuerier(ctx, t.tx, fileID)
}

func (t *sqliteTx) UpsertChunk(ctx context.Context, chunk *Chunk) error {
	return t.storage.upsertChunkWithQuerier(ctx, t.tx, chunk)
}

func (t *sqliteTx) GetChunk(ctx context.Context, chunkID string) (*Chunk, error) {
	return t.storage.getChunkWithQuerier(ctx, t.tx, chunkID)
}

func (t *sqliteTx) GetChunks(ctx context.Context, chunkIDs []string) ([]*Chunk, error) {
	return t.storage.getChunksWithQuerier(ctx, t.tx, chunkIDs)
}

func (t *sqliteTx) ListChunksByFile(ctx context.Context, fileID int64) ([]*Chunk, error) {
	return t.storage.listChunksByFileWithQuerier(ctx, t.tx, fileID)
}

func (t *sqliteTx) DeleteChunksByFile(ctx context.Context, fileID int64) error {
	return t.storage.deleteChunksByFileWithQuerier(ctx, t.tx, fileID)
}

func (t *sqliteTx) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return t.storage.upsertEmbeddingWithQuerier(ctx, t.tx, embedding)
}

func (t *sqliteTx) GetEmbedding(ctx context.Context, chunkID string) (*Embedding, error) {
	return t.storage.getEmbeddingWithQuerier(ctx, t.tx, chunkID)
}

func (t *sqliteTx) SearchVector(ctx context.Context, repoID int64, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	// Vector search reads committed data only
	return t.storage.SearchVector(ctx, repoID, vector, limit, filters)
}

func (t *sqliteTx) CacheQuery(ctx context.Context, entry *CachedQuery) error {
	return t.storage.cacheQueryWithQuerier(ctx, t.tx, entry)
}

func (t *sqliteTx) GetCachedQuery(ctx context.Context, queryHash []byte) (*CachedQuery, error) {
	return t.storage.getCachedQueryWithQuerier(ctx, t.tx, queryHash)
}

func (t *sqliteTx) PruneQueryCache(ctx context.Context, now time.Time) (int, error) {
	return t.storage.pruneQueryCacheWithQuerier(ctx, t.tx, now)
}

func (t *sqliteTx) GetStatus(ctx context.Context, repoID int64) (*RepoStatus, error) {
	return t.storage.getStatusWithQuerier(ctx, t.tx, repoID)
}

func (t *sqliteTx) Close() error {
	return nil // The owning storage closes the database
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	return nil, errors.New("nested transactions are not supported")
}
