// Package dataset discovers labeled images from a class-per-subdirectory
// layout and partitions them into disjoint, reproducible train and
// validation sets.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// supported image extensions, lower case
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Error reports a problem with the dataset on disk: a missing root,
// no class subdirectories, an empty class, or an unreadable image.
type Error struct {
	Path   string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("dataset: %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("dataset: %s: %s", e.Path, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Item is a single labeled image reference
type Item struct {
	Path  string // absolute path to the image file
	Label int32  // class index into the catalog
}

// Catalog is the ordered class-name/index mapping derived from the
// dataset's subdirectory names. One catalog instance is shared by the
// train and validation partitions, so indices are stable across both.
type Catalog struct {
	names []string
	index map[string]int
}

func newCatalog(names []string) *Catalog {
	index := make(map[string]int, len(names))
	for i, name := range names {
		index[name] = i
	}
	return &Catalog{names: names, index: index}
}

// Names returns the class names in index order
func (c *Catalog) Names() []string { return append([]string(nil), c.names...) }

// Name returns the class name for an index
func (c *Catalog) Name(idx int) (string, bool) {
	if idx < 0 || idx >= len(c.names) {
		return "", false
	}
	return c.names[idx], true
}

// Index returns the class index for a name
func (c *Catalog) Index(name string) (int, bool) {
	idx, ok := c.index[name]
	return idx, ok
}

// Len returns the number of classes
func (c *Catalog) Len() int { return len(c.names) }

// Split holds the disjoint train/validation partition and the shared
// class catalog.
type Split struct {
	Train   []Item
	Val     []Item
	Catalog *Catalog
}

// Distribution returns per-class image counts across both partitions
func (s *Split) Distribution() map[string]int {
	dist := make(map[string]int, s.Catalog.Len())
	for _, items := range [][]Item{s.Train, s.Val} {
		for _, item := range items {
			if name, ok := s.Catalog.Name(int(item.Label)); ok {
				dist[name]++
			}
		}
	}
	return dist
}

// Partition discovers classes and images under root and assigns every
// image to the train or validation partition. Class labels are the
// sorted immediate subdirectory names. Assignment draws a deterministic
// pseudo-random value from (seed, class-relative path), so the same
// (root contents, splitFraction, seed) triple always yields the same
// partition regardless of directory enumeration order.
func Partition(root string, splitFraction float64, seed int64) (*Split, error) {
	if splitFraction <= 0 || splitFraction >= 1 {
		return nil, fmt.Errorf("split fraction must be in (0, 1), got %v", splitFraction)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, &Error{Path: root, Reason: "cannot read dataset root", Err: err}
	}

	var classNames []string
	for _, entry := range entries {
		if entry.IsDir() {
			classNames = append(classNames, entry.Name())
		}
	}
	if len(classNames) == 0 {
		return nil, &Error{Path: root, Reason: "no class subdirectories found"}
	}
	sort.Strings(classNames)

	catalog := newCatalog(classNames)
	split := &Split{Catalog: catalog}

	for idx, className := range classNames {
		classDir := filepath.Join(root, className)
		files, err := os.ReadDir(classDir)
		if err != nil {
			return nil, &Error{Path: classDir, Reason: "cannot read class directory", Err: err}
		}

		usable := 0
		for _, file := range files {
			if file.IsDir() {
				continue
			}
			ext := strings.ToLower(filepath.Ext(file.Name()))
			if !imageExtensions[ext] {
				continue
			}
			usable++

			item := Item{
				Path:  filepath.Join(classDir, file.Name()),
				Label: int32(idx),
			}
			if drawUnit(seed, className+"/"+file.Name()) < splitFraction {
				split.Val = append(split.Val, item)
			} else {
				split.Train = append(split.Train, item)
			}
		}

		if usable == 0 {
			return nil, &Error{Path: classDir, Reason: "class contains no usable images"}
		}
	}

	if len(split.Train) == 0 {
		return nil, &Error{Path: root, Reason: "partition left the training set empty"}
	}
	if len(split.Val) == 0 {
		return nil, &Error{Path: root, Reason: "partition left the validation set empty"}
	}

	return split, nil
}
