package picker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/italolelis/session_uploader/internal/logctx"
)

// Item is one file offered by a picker. Handle is the local path the upload
// engine reads from; Size is zero when the picker could not determine it.
type Item struct {
	Name   string
	Size   int64
	Handle string
}

// Result is the outcome of a pick. Cancelled means the user backed out and
// no items were produced.
type Result struct {
	Cancelled bool
	Items     []Item
}

// FilePicker is the file-selection collaborator. Pick may fail with an I/O or
// permission error, in which case no items are produced.
type FilePicker interface {
	Pick(ctx context.Context) (*Result, error)
}

// StaticPicker offers a fixed list of paths, in order. It stats every path up
// front and fails the whole pick if any is unreadable, so a bad argument never
// commits a partial selection. An empty path list behaves like a cancelled
// dialog.
type StaticPicker struct {
	Paths []string
}

func (p *StaticPicker) Pick(ctx context.Context) (*Result, error) {
	if len(p.Paths) == 0 {
		return &Result{Cancelled: true}, nil
	}

	items := make([]Item, 0, len(p.Paths))

	for _, path := range p.Paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}

		if info.IsDir() {
			return nil, fmt.Errorf("%s is a directory, not a file", path)
		}

		items = append(items, Item{
			Name:   filepath.Base(path),
			Size:   info.Size(),
			Handle: path,
		})
	}

	return &Result{Items: items}, nil
}

// DirPicker offers the regular files of a watch directory, skipping dotfiles
// and anything it has already offered. It stands in for an interactive picker
// in daemon mode: dropping a file into the directory selects it.
type DirPicker struct {
	dir string

	mu   sync.Mutex
	seen map[string]bool
}

func NewDirPicker(dir string) *DirPicker {
	return &DirPicker{dir: dir, seen: make(map[string]bool)}
}

func (p *DirPicker) Pick(ctx context.Context) (*Result, error) {
	logger := logctx.LoggerFromContext(ctx)

	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read watch directory: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var items []Item

	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		path := filepath.Join(p.dir, entry.Name())
		if p.seen[path] {
			continue
		}

		p.seen[path] = true

		var size int64

		info, err := entry.Info()
		if err != nil {
			logger.Warn("could not determine file size", "file", path, "err", err)
		} else {
			size = info.Size()
		}

		items = append(items, Item{
			Name:   entry.Name(),
			Size:   size,
			Handle: path,
		})
	}

	return &Result{Items: items}, nil
}
