package fetch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ImportFile is one discovered manual-import file.
type ImportFile struct {
	// Path is the absolute filesystem path.
	Path string
	// Ext is the lowercase extension, dot included.
	Ext string
}

// rdfExtensions are the serializations accepted for manual import. JSON
// files re-enter the API-shaped pipeline instead.
var rdfExtensions = map[string]bool{
	".rdf":  true,
	".trig": true,
	".ttl":  true,
	".nt":   true,
	".nq":   true,
}

// ListImports scans a library's import directory and returns the loadable
// files in stable path order. pattern is an optional doublestar glob
// relative to dir ("**/*.ttl"); empty means every recognized file.
func ListImports(dir, pattern string) ([]ImportFile, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrUnavailable, dir)
	}

	if pattern == "" {
		pattern = "**/*"
	}
	matches, err := doublestar.Glob(os.DirFS(dir), pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: bad import pattern %q: %v", ErrUnavailable, pattern, err)
	}

	var files []ImportFile
	for _, rel := range matches {
		abs := filepath.Join(dir, filepath.FromSlash(rel))
		st, err := os.Stat(abs)
		if err != nil || st.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(rel))
		if !rdfExtensions[ext] && ext != ".json" {
			continue
		}
		files = append(files, ImportFile{Path: abs, Ext: ext})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// IsRDF reports whether the file carries serialized RDF rather than API
// JSON.
func (f ImportFile) IsRDF() bool { return rdfExtensions[f.Ext] }

// Open opens the file for reading.
func (f ImportFile) Open() (io.ReadCloser, error) { return os.Open(f.Path) }
