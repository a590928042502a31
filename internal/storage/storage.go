package storage

import (
	"context"
	"time"
)

// Storage defines the interface for persisting and querying indexed code data
type Storage interface {
	// Repository operations
	CreateRepo(ctx context.Context, repo *Repo) error
	GetRepo(ctx context.Context, name string) (*Repo, error)
	GetRepoByID(ctx context.Context, repoID int64) (*Repo, error)
	UpdateRepo(ctx context.Context, repo *Repo) error
	ListRepos(ctx context.Context) ([]*Repo, error)
	DeleteRepo(ctx context.Context, repoID int64) error

	// File operations
	UpsertFile(ctx context.Context, file *File) error
	GetFile(ctx context.Context, repoID int64, filePath string) (*File, error)
	ListFiles(ctx context.Context, repoID int64) ([]*File, error)
	DeleteFile(ctx context.Context, fileID int64) error

	// Chunk operations
	UpsertChunk(ctx context.Context, chunk *Chunk) error
	GetChunk(ctx context.Context, chunkID string) (*Chunk, error)
	GetChunks(ctx context.Context, chunkIDs []string) ([]*Chunk, error)
	ListChunksByFile(ctx context.Context, fileID int64) ([]*Chunk, error)
	DeleteChunksByFile(ctx context.Context, fileID int64) error

	// Embedding operations
	UpsertEmbedding(ctx context.Context, embedding *Embedding) error
	GetEmbedding(ctx context.Context, chunkID string) (*Embedding, error)

	// Search operations
	SearchVector(ctx context.Context, repoID int64, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error)

	// Query cache operations
	CacheQuery(ctx context.Context, entry *CachedQuery) error
	GetCachedQuery(ctx context.Context, queryHash []byte) (*CachedQuery, error)
	PruneQueryCache(ctx context.Context, now time.Time) (int, error)

	// Status operations
	GetStatus(ctx context.Context, repoID int64) (*RepoStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Repo represents an indexed repository
type Repo struct {
	ID            int64
	Name          string // owner/repo
	URL           string
	TotalFiles    int
	TotalChunks   int
	IndexVersion  string
	LastIndexedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// File represents a tracked source file
type File struct {
	ID            int64
	RepoID        int64
	FilePath      string // Relative to repository root
	Language      string
	ContentHash   [32]byte
	SizeBytes     int64
	LastModified  time.Time
	LastIndexedAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Chunk represents a stored code chunk. The ID is the UUID assigned at
// chunking time; Metadata round-trips as JSON.
type Chunk struct {
	ID          string
	FileID      int64
	FilePath    string // Populated on reads via join with files; not a column
	Content     string
	ContentHash [32]byte
	StartLine   int
	EndLine     int
	Language    string
	ChunkType   string
	Metadata    map[string]any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Embedding represents a vector embedding for a chunk
type Embedding struct {
	ID        int64
	ChunkID   string
	Vector    []byte // Serialized float32 array
	Dimension int
	Provider  string
	Model     string
	CreatedAt time.Time
}

// CachedQuery is a persisted search result, keyed by the hash of the query
// text
type CachedQuery struct {
	ID             int64
	QueryText      string
	QueryHash      []byte
	ResultChunkIDs []string
	HitCount       int
	CreatedAt      time.Time
	ExpiresAt      time.Time
}

// SearchFilters contains filters for narrowing search results
type SearchFilters struct {
	Languages    []string // Filter by language tags
	ChunkTypes   []string // Filter by chunk type
	FilePattern  string   // Glob pattern for file paths
	MinRelevance float64  // Minimum similarity score
}

// VectorResult represents a result from vector similarity search
type VectorResult struct {
	ChunkID         string
	SimilarityScore float64
}

// RepoStatus contains statistics about an indexed repository
type RepoStatus struct {
	Repo            *Repo
	FilesCount      int
	ChunksCount     int
	EmbeddingsCount int
	IndexSizeMB     float64
	LastIndexedAt   time.Time
	Health          HealthStatus
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible  bool
	EmbeddingsAvailable bool
	VectorSearchNative  bool
}
