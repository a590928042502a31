// Package searcher runs semantic code queries against indexed repositories.
//
// A query is embedded once, ranked against stored chunk embeddings by cosine
// similarity, and hydrated into full search results with file paths, line
// ranges, and chunk metadata.
//
// # Basic Usage
//
//	s := searcher.NewSearcher(store, emb)
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Query:    "how does authentication work",
//	    RepoID:   repo.ID,
//	    Limit:    10,
//	    UseCache: true,
//	})
//
// # Caching
//
// Two cache layers sit in front of the search pipeline:
//
//   - An in-memory LRU keyed by query hash, holding full responses for the
//     life of the process
//   - The search_queries table, holding ranked chunk IDs with scores so
//     repeated queries survive restarts without re-embedding
//
// Both layers honor the request's CacheTTL. InvalidateCache drops both after
// reindexing, when cached chunk IDs may no longer exist.
//
// # Filters
//
// Requests can narrow results by language, chunk type, file path glob, and
// minimum relevance score. A RepoID of 0 searches across every indexed
// repository.
package searcher
