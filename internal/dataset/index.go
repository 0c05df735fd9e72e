package dataset

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrImageNotFound is returned when no image file matches an annotation.
	ErrImageNotFound = errors.New("image not found")

	// ErrAmbiguousImage is returned when several files match an annotation.
	ErrAmbiguousImage = errors.New("ambiguous image name")
)

// imageExtensions lists the file types picked up from the image directory.
var imageExtensions = map[string]bool{".jpg": true, ".jpeg": true, ".png": true}

// Index maps annotation image names to exactly one file path.
type Index struct {
	dir   string
	paths map[string]string
}

// BuildIndex lists dir once and resolves every name in names.
//
// A name resolves to the file whose base name equals it, or failing that, to
// the single file whose base name without extension equals it. All names
// that are missing or match several files are reported together.
func BuildIndex(dir string, names []string) (*Index, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	byBase := make(map[string]string)
	byStem := make(map[string][]string)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		base := e.Name()
		ext := filepath.Ext(base)
		if !imageExtensions[strings.ToLower(ext)] {
			continue
		}
		path := filepath.Join(dir, base)
		byBase[base] = path
		stem := strings.TrimSuffix(base, ext)
		byStem[stem] = append(byStem[stem], path)
	}

	idx := &Index{dir: dir, paths: make(map[string]string, len(names))}
	var errs []error
	for _, name := range names {
		if _, done := idx.paths[name]; done {
			continue
		}
		if p, ok := byBase[name]; ok {
			idx.paths[name] = p
			continue
		}
		switch candidates := byStem[name]; len(candidates) {
		case 0:
			errs = append(errs, fmt.Errorf("%w: %s in %s", ErrImageNotFound, name, dir))
		case 1:
			idx.paths[name] = candidates[0]
		default:
			sort.Strings(candidates)
			errs = append(errs, fmt.Errorf("%w: %s matches %s", ErrAmbiguousImage, name, strings.Join(candidates, ", ")))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return idx, nil
}

// Path returns the file for an image name.
func (i *Index) Path(name string) (string, error) {
	p, ok := i.paths[name]
	if !ok {
		return "", fmt.Errorf("%w: %s in %s", ErrImageNotFound, name, i.dir)
	}
	return p, nil
}

// Len returns the number of distinct indexed names.
func (i *Index) Len() int {
	return len(i.paths)
}
