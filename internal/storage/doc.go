// Package storage provides persistent storage for indexed repositories using
// SQLite.
//
// The package stores repositories, their source files, the chunks extracted
// from those files, and the embedding vectors generated for each chunk. A
// small query cache table memoizes search results across process restarts.
//
// # Basic Usage
//
//	store, err := storage.NewSQLiteStorage("index.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	repo := &storage.Repo{Name: "owner/repo", URL: "https://github.com/owner/repo"}
//	if err := store.CreateRepo(ctx, repo); err != nil {
//	    log.Fatal(err)
//	}
//
// # Transactions
//
// BeginTx returns a Tx that exposes the full Storage interface on top of a
// SQL transaction, so indexing can write a file and all of its chunks
// atomically:
//
//	tx, err := store.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	if err := tx.UpsertFile(ctx, file); err != nil {
//	    return err
//	}
//	return tx.Commit()
//
// # Vector Search
//
// SearchVector ranks chunks by cosine similarity against a query embedding.
// Two build modes are supported:
//
//   - sqlite_vec: CGO build using github.com/mattn/go-sqlite3 with the
//     sqlite-vec extension, computing distances inside SQLite
//   - purego (default): pure-Go build using modernc.org/sqlite, scanning
//     candidate vectors and scoring them in Go
//
// Both modes accept the same filters (languages, chunk types, file path
// glob, minimum relevance) and return identically shaped results.
//
// # Schema Migrations
//
// Migrations are versioned with semantic versions and applied automatically
// when the storage is opened. See migrations.go for the schema history.
package storage
