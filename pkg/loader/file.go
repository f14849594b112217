package loader

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/getmockd/pactstub/pkg/pact"
)

func loadFile(path string) Outcome {
	data, err := os.ReadFile(path)
	if err != nil {
		return Outcome{Source: path, Err: fmt.Errorf("reading file: %w", err)}
	}
	p, err := pact.Parse(path, data)
	if err != nil {
		return Outcome{Source: path, Err: err}
	}
	return Outcome{Source: path, Pact: p}
}

// loadDir loads every file below the directory with the source extension,
// in lexical path order.
func (l *loader) loadDir(src Source) []Outcome {
	files, err := DirFiles(src.Location, src.extension())
	if err != nil {
		return []Outcome{{Source: src.Location, Err: err}}
	}
	if len(files) == 0 {
		l.log.Warn("no pact files found", "dir", src.Location, "extension", src.extension())
	}
	outcomes := make([]Outcome, 0, len(files))
	for _, f := range files {
		outcomes = append(outcomes, loadFile(f))
	}
	return outcomes
}

// DirFiles lists the files below dir ending in "."+ext, recursively and
// sorted.
func DirFiles(dir, ext string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("directory not found: %s", dir)
		}
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", dir)
	}

	// The extension is matched literally, so glob every file and filter.
	matches, err := doublestar.Glob(os.DirFS(dir), "**/*", doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("scanning directory: %w", err)
	}
	sort.Strings(matches)

	suffix := "." + ext
	files := make([]string, 0, len(matches))
	for _, m := range matches {
		if !strings.HasSuffix(m, suffix) {
			continue
		}
		files = append(files, filepath.Join(dir, filepath.FromSlash(m)))
	}
	return files, nil
}
