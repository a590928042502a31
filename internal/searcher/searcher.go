package searcher

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/repoctx-mcp/internal/embedder"
	"github.com/dshills/repoctx-mcp/internal/storage"
	"github.com/dshills/repoctx-mcp/pkg/types"
)

const (
	// DefaultLimit is the number of results returned when none is requested
	DefaultLimit = 10
	// MaxLimit caps the number of results per query
	MaxLimit = 100
	// DefaultCacheTTL is how long cached query results stay valid
	DefaultCacheTTL = 1 * time.Hour
	// DefaultCacheSize is the in-memory query cache capacity
	DefaultCacheSize = 1000
)

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query    string
	Limit    int
	RepoID   int64 // 0 searches across all indexed repos
	Filters  *storage.SearchFilters
	UseCache bool
	CacheTTL time.Duration
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results      []types.SearchResult
	TotalResults int
	Duration     time.Duration
	CacheHit     bool
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Searcher runs semantic queries against indexed repositories. Query
// embeddings are generated once per query; results are cached in memory
// for the process lifetime and in the database across restarts.
type Searcher struct {
	storage  storage.Storage
	embedder embedder.Embedder
	cache    *lru.Cache[[32]byte, *cacheEntry]
	cacheMu  sync.RWMutex
	logger   *slog.Logger
}

// NewSearcher creates a new Searcher instance
func NewSearcher(store storage.Storage, emb embedder.Embedder) *Searcher {
	return NewSearcherWithLogger(store, emb, slog.Default())
}

// NewSearcherWithLogger creates a Searcher with a custom logger
func NewSearcherWithLogger(store storage.Storage, emb embedder.Embedder, logger *slog.Logger) *Searcher {
	cache, err := lru.New[[32]byte, *cacheEntry](DefaultCacheSize)
	if err != nil {
		// Only reachable with a non-positive size
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}

	return &Searcher{
		storage:  store,
		embedder: emb,
		cache:    cache,
		logger:   logger,
	}
}

// Search embeds the query, ranks chunks by vector similarity, and returns
// fully hydrated results
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	startTime := time.Now()

	if s.embedder == nil {
		return nil, fmt.Errorf("embedder not initialized")
	}
	if err := s.validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	hash := computeQueryHash(req)

	if req.UseCache {
		if cached := s.checkMemoryCache(hash); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			return cached, nil
		}
		if cached, err := s.checkPersistentCache(ctx, hash); err == nil {
			cached.CacheHit = true
			cached.Duration = time.Since(startTime)
			s.storeInMemoryCache(hash, cached, req.CacheTTL)
			return cached, nil
		}
	}

	embReq := embedder.EmbeddingRequest{Text: req.Query}
	embedding, err := s.embedder.GenerateEmbedding(ctx, embReq)
	if err != nil {
		return nil, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	vectorResults, err := s.storage.SearchVector(ctx, req.RepoID, embedding.Vector, req.Limit, req.Filters)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	scored := make([]scoredChunk, len(vectorResults))
	for i, vr := range vectorResults {
		scored[i] = scoredChunk{chunkID: vr.ChunkID, score: clampScore(vr.SimilarityScore)}
	}

	results, err := s.fetchResults(ctx, scored)
	if err != nil {
		return nil, err
	}

	response := &SearchResponse{
		Results:      results,
		TotalResults: len(results),
		Duration:     time.Since(startTime),
	}

	if req.UseCache && len(results) > 0 {
		s.storeInMemoryCache(hash, response, req.CacheTTL)
		if err := s.storePersistentCache(ctx, req, hash, results); err != nil {
			s.logger.Warn("failed to persist query cache entry", "error", err)
		}
	}

	return response, nil
}

// scoredChunk pairs a chunk ID with its relevance score
type scoredChunk struct {
	chunkID string
	score   float64
}

// fetchResults hydrates scored chunk IDs into search results. Chunks that
// can no longer be loaded are skipped and ranks stay contiguous.
func (s *Searcher) fetchResults(ctx context.Context, scored []scoredChunk) ([]types.SearchResult, error) {
	if len(scored) == 0 {
		return nil, nil
	}

	ids := make([]string, len(scored))
	for i, sc := range scored {
		ids[i] = sc.chunkID
	}

	chunks, err := s.storage.GetChunks(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load result chunks: %w", err)
	}

	byID := make(map[string]*storage.Chunk, len(chunks))
	for _, c := range chunks {
		byID[c.ID] = c
	}

	results := make([]types.SearchResult, 0, len(scored))
	for _, sc := range scored {
		chunk, ok := byID[sc.chunkID]
		if !ok {
			continue
		}
		results = append(results, types.SearchResult{
			ChunkID:        sc.chunkID,
			Rank:           len(results) + 1,
			RelevanceScore: sc.score,
			Chunk: &types.Chunk{
				ID:        chunk.ID,
				FilePath:  chunk.FilePath,
				Content:   chunk.Content,
				StartLine: chunk.StartLine,
				EndLine:   chunk.EndLine,
				Language:  chunk.Language,
				ChunkType: chunk.ChunkType,
				Metadata:  chunk.Metadata,
			},
		})
	}
	return results, nil
}

// validateRequest ensures the search request is valid, applying defaults
func (s *Searcher) validateRequest(req *SearchRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return fmt.Errorf("query cannot be empty")
	}

	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}
	if req.CacheTTL == 0 {
		req.CacheTTL = DefaultCacheTTL
	}

	return nil
}

// checkMemoryCache returns a copy of a live cached response, or nil
func (s *Searcher) checkMemoryCache(hash [32]byte) *SearchResponse {
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}

	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()
		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil
	}

	// Copy while holding the read lock so the entry can't change mid-copy
	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()

	return response
}

// storeInMemoryCache saves a deep copy of the response
func (s *Searcher) storeInMemoryCache(hash [32]byte, response *SearchResponse, ttl time.Duration) {
	entry := &cacheEntry{
		response:  copySearchResponse(response),
		expiresAt: time.Now().Add(ttl),
	}

	s.cacheMu.Lock()
	s.cache.Add(hash, entry)
	s.cacheMu.Unlock()
}

// checkPersistentCache rebuilds a response from the database query cache
func (s *Searcher) checkPersistentCache(ctx context.Context, hash [32]byte) (*SearchResponse, error) {
	entry, err := s.storage.GetCachedQuery(ctx, hash[:])
	if err != nil {
		return nil, err
	}

	scored := make([]scoredChunk, 0, len(entry.ResultChunkIDs))
	for _, ref := range entry.ResultChunkIDs {
		sc, err := parseScoredRef(ref)
		if err != nil {
			return nil, err
		}
		scored = append(scored, sc)
	}

	results, err := s.fetchResults(ctx, scored)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("cached chunks no longer exist")
	}

	return &SearchResponse{
		Results:      results,
		TotalResults: len(results),
	}, nil
}

// storePersistentCache writes the ranked chunk IDs and scores to the database
func (s *Searcher) storePersistentCache(ctx context.Context, req SearchRequest, hash [32]byte, results []types.SearchResult) error {
	refs := make([]string, len(results))
	for i, r := range results {
		refs[i] = formatScoredRef(r.ChunkID, r.RelevanceScore)
	}

	return s.storage.CacheQuery(ctx, &storage.CachedQuery{
		QueryText:      req.Query,
		QueryHash:      hash[:],
		ResultChunkIDs: refs,
		ExpiresAt:      time.Now().Add(req.CacheTTL),
	})
}

// formatScoredRef packs a chunk ID and its score into one cache token
func formatScoredRef(chunkID string, score float64) string {
	return fmt.Sprintf("%s|%.6f", chunkID, score)
}

// parseScoredRef unpacks a cache token produced by formatScoredRef
func parseScoredRef(ref string) (scoredChunk, error) {
	idx := strings.LastIndexByte(ref, '|')
	if idx < 0 {
		return scoredChunk{}, fmt.Errorf("malformed cached result ref: %q", ref)
	}
	score, err := strconv.ParseFloat(ref[idx+1:], 64)
	if err != nil {
		return scoredChunk{}, fmt.Errorf("malformed cached result score: %q", ref)
	}
	return scoredChunk{chunkID: ref[:idx], score: score}, nil
}

// clampScore normalizes cosine similarity into [0, 1]
func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// copySearchResponse creates a deep copy of a SearchResponse
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}

	dst := &SearchResponse{
		TotalResults: src.TotalResults,
		Duration:     src.Duration,
		CacheHit:     src.CacheHit,
		Results:      make([]types.SearchResult, len(src.Results)),
	}

	for i, result := range src.Results {
		dst.Results[i] = result
		if result.Chunk != nil {
			chunkCopy := *result.Chunk
			if result.Chunk.Metadata != nil {
				chunkCopy.Metadata = make(map[string]any, len(result.Chunk.Metadata))
				for k, v := range result.Chunk.Metadata {
					chunkCopy.Metadata[k] = v
				}
			}
			dst.Results[i].Chunk = &chunkCopy
		}
	}

	return dst
}

// computeQueryHash computes a deterministic hash for a search request
func computeQueryHash(req SearchRequest) [32]byte {
	var data strings.Builder
	data.WriteString(req.Query)
	data.WriteString("|")
	data.WriteString(strconv.FormatInt(req.RepoID, 10))
	data.WriteString("|")
	data.WriteString(strconv.Itoa(req.Limit))

	if req.Filters != nil {
		data.WriteString("|filters:")
		data.WriteString(strings.Join(req.Filters.Languages, ","))
		data.WriteString("|")
		data.WriteString(strings.Join(req.Filters.ChunkTypes, ","))
		data.WriteString("|")
		data.WriteString(req.Filters.FilePattern)
		data.WriteString("|")
		data.WriteString(fmt.Sprintf("%.2f", req.Filters.MinRelevance))
	}

	return sha256.Sum256([]byte(data.String()))
}

// InvalidateCache drops all cached query results. Called after reindexing,
// when cached chunk IDs may no longer exist.
func (s *Searcher) InvalidateCache(ctx context.Context) error {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()

	if _, err := s.storage.PruneQueryCache(ctx, time.Now().Add(100*365*24*time.Hour)); err != nil {
		return fmt.Errorf("failed to prune persistent query cache: %w", err)
	}
	return nil
}
