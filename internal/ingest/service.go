package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	git "github.com/go-git/go-git/v5"

	"github.com/dshills/repoctx-mcp/pkg/types"
)

// MaxFileSize is the largest file the ingester will read, in bytes
const MaxFileSize = 1 << 20

// Common ingestion errors
var (
	// ErrInvalidRepoURL indicates the repository URL is not an HTTPS
	// GitHub URL of the form https://github.com/owner/repo
	ErrInvalidRepoURL = errors.New("invalid repository URL")

	// ErrCloneFailed indicates the repository could not be cloned
	ErrCloneFailed = errors.New("clone failed")

	// ErrPathNotFound indicates a local repository path does not exist
	ErrPathNotFound = errors.New("repository path not found")
)

// Service fetches repositories and extracts their source files
type Service struct {
	logger *slog.Logger
}

// New creates a new ingestion Service
func New() *Service {
	return &Service{logger: slog.Default()}
}

// NewWithLogger creates a Service that logs skipped files to logger
func NewWithLogger(logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{logger: logger}
}

// IngestRepository shallow-clones a GitHub repository into a temporary
// directory and extracts its supported source files. The clone directory is
// removed before returning.
func (s *Service) IngestRepository(ctx context.Context, repoURL string) ([]*types.SourceFile, error) {
	if err := ValidateRepoURL(repoURL); err != nil {
		return nil, err
	}

	tmpDir, err := os.MkdirTemp("", "repoctx-ingest-")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			s.logger.Warn("failed to clean up clone directory", "dir", tmpDir, "error", err)
		}
	}()

	s.logger.Info("cloning repository", "url", repoURL)

	_, err = git.PlainCloneContext(ctx, tmpDir, false, &git.CloneOptions{
		URL:          repoURL,
		Depth:        1,
		SingleBranch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCloneFailed, repoURL, err)
	}

	return s.CollectFiles(tmpDir)
}

// IngestLocal extracts supported source files from a repository already on
// disk
func (s *Service) IngestLocal(ctx context.Context, repoPath string) ([]*types.SourceFile, error) {
	info, err := os.Stat(repoPath)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrPathNotFound, repoPath)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.CollectFiles(repoPath)
}

// CollectFiles walks the repository tree rooted at root and returns the
// files that survive filtering: supported extension, within the size cap,
// not ignored, not binary and not generated. Unreadable files are skipped
// with a warning rather than failing the whole walk. Paths in the result are
// slash-separated and relative to root.
func (s *Service) CollectFiles(root string) ([]*types.SourceFile, error) {
	filter := newIgnoreFilter(root)

	var files []*types.SourceFile
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("skipping unreadable entry", "path", path, "error", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && filter.shouldIgnore(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !IsSupportedFile(path) || filter.shouldIgnore(rel) {
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			s.logger.Warn("skipping file without metadata", "path", rel, "error", infoErr)
			return nil
		}
		if info.Size() > MaxFileSize {
			s.logger.Warn("skipping large file", "path", rel, "size", info.Size())
			return nil
		}

		content, readErr := os.ReadFile(path)
		if readErr != nil {
			s.logger.Warn("skipping unreadable file", "path", rel, "error", readErr)
			return nil
		}

		if isBinaryOrGenerated(rel, content) {
			return nil
		}

		files = append(files, &types.SourceFile{
			FilePath:     rel,
			Content:      sanitizeUTF8(content),
			Language:     DetectLanguage(path),
			SizeBytes:    info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk repository: %w", err)
	}

	s.logger.Info("extracted source files", "root", root, "count", len(files))
	return files, nil
}

// ValidateRepoURL checks that raw is an HTTPS GitHub URL naming at least an
// owner and a repository
func ValidateRepoURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRepoURL, err)
	}

	if !strings.EqualFold(u.Scheme, "https") {
		return fmt.Errorf("%w: scheme must be https", ErrInvalidRepoURL)
	}

	host := strings.ToLower(u.Hostname())
	if host != "github.com" && host != "www.github.com" {
		return fmt.Errorf("%w: host must be github.com", ErrInvalidRepoURL)
	}

	var parts []string
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return fmt.Errorf("%w: path must name owner and repository", ErrInvalidRepoURL)
	}

	return nil
}

// RepoName derives "owner/repo" from a validated repository URL, trimming a
// trailing .git suffix
func RepoName(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	var parts []string
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) < 2 {
		return strings.Trim(u.Path, "/")
	}

	return parts[0] + "/" + strings.TrimSuffix(parts[1], ".git")
}

// sanitizeUTF8 drops invalid byte sequences so file content is always valid
// UTF-8 by the time it reaches chunking and storage
func sanitizeUTF8(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	return strings.ToValidUTF8(string(content), "")
}
