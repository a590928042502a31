package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
)

// searchVector finds chunks with similar embeddings using cosine similarity.
// When the sqlite-vec extension is compiled in, similarity is computed in SQL;
// otherwise candidate vectors are scanned and scored in Go.
func searchVector(ctx context.Context, q querier, repoID int64, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	if limit <= 0 {
		limit = 10
	}

	if VectorExtensionAvailable {
		return searchVectorNative(ctx, q, repoID, vector, limit, filters)
	}
	return searchVectorFallback(ctx, q, repoID, vector, limit, filters)
}

// searchVectorNative computes similarity inside SQLite via vec_distance_cosine
func searchVectorNative(ctx context.Context, q querier, repoID int64, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	queryBlob := SerializeVector(vector)

	query := `
		SELECT c.id, 1.0 - vec_distance_cosine(e.vector, ?) AS similarity
		FROM embeddings e
		INNER JOIN chunks c ON e.chunk_id = c.id
		INNER JOIN files f ON c.file_id = f.id
		WHERE e.dimension = ?
	`
	args := []interface{}{queryBlob, len(vector)}

	// repoID <= 0 searches across all indexed repos
	if repoID > 0 {
		query += " AND f.repo_id = ?"
		args = append(args, repoID)
	}

	filterSQL, filterArgs := buildVectorFilters(filters)
	query += filterSQL
	args = append(args, filterArgs...)

	if filters != nil && filters.MinRelevance > 0 {
		query += " AND 1.0 - vec_distance_cosine(e.vector, ?) >= ?"
		args = append(args, queryBlob, filters.MinRelevance)
	}

	query += " ORDER BY similarity DESC LIMIT ?"
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []VectorResult
	for rows.Next() {
		var r VectorResult
		if err := rows.Scan(&r.ChunkID, &r.SimilarityScore); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// searchVectorFallback scans candidate embeddings and scores them in Go
func searchVectorFallback(ctx context.Context, q querier, repoID int64, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	query := `
		SELECT c.id, e.vector
		FROM embeddings e
		INNER JOIN chunks c ON e.chunk_id = c.id
		INNER JOIN files f ON c.file_id = f.id
		WHERE e.dimension = ?
	`
	args := []interface{}{len(vector)}

	if repoID > 0 {
		query += " AND f.repo_id = ?"
		args = append(args, repoID)
	}

	filterSQL, filterArgs := buildVectorFilters(filters)
	query += filterSQL
	args = append(args, filterArgs...)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []VectorResult
	for rows.Next() {
		var chunkID string
		var blob []byte
		if err := rows.Scan(&chunkID, &blob); err != nil {
			return nil, err
		}

		candidate, err := DeserializeVector(blob)
		if err != nil {
			continue // Skip corrupt rows rather than failing the search
		}

		score := CosineSimilarity(vector, candidate)
		if filters != nil && filters.MinRelevance > 0 && score < filters.MinRelevance {
			continue
		}
		results = append(results, VectorResult{ChunkID: chunkID, SimilarityScore: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].SimilarityScore > results[j].SimilarityScore
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// buildVectorFilters translates metadata filters into SQL clauses
func buildVectorFilters(filters *SearchFilters) (string, []interface{}) {
	if filters == nil {
		return "", nil
	}

	var sb strings.Builder
	var args []interface{}

	if len(filters.Languages) > 0 {
		sb.WriteString(" AND c.language IN (")
		sb.WriteString(placeholders(len(filters.Languages)))
		sb.WriteString(")")
		for _, lang := range filters.Languages {
			args = append(args, strings.ToLower(lang))
		}
	}

	if len(filters.ChunkTypes) > 0 {
		sb.WriteString(" AND c.chunk_type IN (")
		sb.WriteString(placeholders(len(filters.ChunkTypes)))
		sb.WriteString(")")
		for _, ct := range filters.ChunkTypes {
			args = append(args, ct)
		}
	}

	if filters.FilePattern != "" {
		sb.WriteString(" AND f.file_path GLOB ?")
		args = append(args, filters.FilePattern)
	}

	return sb.String(), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// SerializeVector encodes a float32 vector as a little-endian byte blob
func SerializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// DeserializeVector decodes a little-endian byte blob into a float32 vector
func DeserializeVector(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, fmt.Errorf("invalid vector blob length: %d", len(blob))
	}
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector, nil
}

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns 0 for mismatched dimensions or zero-magnitude vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
