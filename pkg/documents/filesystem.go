package documents

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"
)

// DefaultExtensions are the file types read as plain text.
var DefaultExtensions = []string{".txt", ".md", ".markdown", ".csv", ".json", ".html", ".htm"}

// FileSource reads documents from a directory.
type FileSource struct {
	root       string
	recursive  bool
	extensions map[string]struct{}
}

// Option configures a FileSource.
type Option func(*FileSource)

// WithRecursive descends into subdirectories.
func WithRecursive(recursive bool) Option {
	return func(s *FileSource) {
		s.recursive = recursive
	}
}

// WithExtensions replaces DefaultExtensions. Extensions are matched case
// insensitively and may be given with or without the leading dot.
func WithExtensions(exts ...string) Option {
	return func(s *FileSource) {
		s.extensions = extensionSet(exts)
	}
}

// NewFileSource checks that root is a directory and returns a source over it.
func NewFileSource(root string, opts ...Option) (*FileSource, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRootNotFound, root)
		}
		return nil, fmt.Errorf("stat document root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrRootNotFound, root)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving document root: %w", err)
	}

	s := &FileSource{
		root:       abs,
		extensions: extensionSet(DefaultExtensions),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Root returns the absolute document root.
func (s *FileSource) Root() string {
	return s.root
}

// List reads every matching file under the root, sorted by ID.
func (s *FileSource) List(ctx context.Context) ([]Document, error) {
	var docs []Document

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == s.root {
				return fmt.Errorf("%w: %v", ErrRootNotFound, err)
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if path == s.root {
			return nil
		}

		if strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if !s.recursive {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() || !s.Accepts(d.Name()) {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading document %s: %w", path, err)
		}
		if !utf8.Valid(data) {
			return fmt.Errorf("document %s is not valid UTF-8", path)
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}

		docs = append(docs, Document{
			ID:   filepath.ToSlash(rel),
			Text: string(data),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(docs, func(a, b Document) int {
		return strings.Compare(a.ID, b.ID)
	})

	return docs, nil
}

// Accepts reports whether a file name has one of the source's extensions.
func (s *FileSource) Accepts(name string) bool {
	_, ok := s.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		set[ext] = struct{}{}
	}
	return set
}

var _ Source = (*FileSource)(nil)
