package content

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aevon-lab/completion-aggregator/internal/core/completion"
	coreerrors "github.com/aevon-lab/completion-aggregator/internal/core/errors"
)

var _ Provider = (*FileSystemProvider)(nil)

// FileSystemProvider serves course outlines from *.yaml files in a directory,
// one course per file. A file is re-parsed when its modification time changes
// and the directory is re-scanned when an unknown course is requested, so
// authors can edit outlines without restarting the service.
type FileSystemProvider struct {
	dir string

	mu      sync.Mutex
	paths   map[string]string // course ID -> file
	entries map[string]cachedOutline
}

type cachedOutline struct {
	modTime time.Time
	tree    *tree
}

// NewFileSystemProvider scans dir eagerly and fails on the first malformed
// outline so configuration mistakes surface at startup.
func NewFileSystemProvider(dir string) (*FileSystemProvider, error) {
	p := &FileSystemProvider{
		dir:     dir,
		paths:   make(map[string]string),
		entries: make(map[string]cachedOutline),
	}

	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("content dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("content path %q is not a directory", dir)
	}

	if err := p.scan(); err != nil {
		return nil, err
	}
	slog.Info("[ContentProvider] Loaded course outlines", "dir", dir, "courses", len(p.paths))
	return p, nil
}

// Root returns the root block of courseID.
func (p *FileSystemProvider) Root(ctx context.Context, courseID string) (completion.Block, error) {
	t, err := p.tree(ctx, courseID)
	if err != nil {
		return completion.Block{}, err
	}
	return t.rootBlock(), nil
}

// Children returns the children of blockID in courseID.
func (p *FileSystemProvider) Children(ctx context.Context, courseID, blockID string) ([]completion.Block, error) {
	t, err := p.tree(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return t.childBlocks(blockID)
}

// Courses returns the IDs of every known course.
func (p *FileSystemProvider) Courses() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]string, 0, len(p.paths))
	for id := range p.paths {
		out = append(out, id)
	}
	return out
}

func (p *FileSystemProvider) tree(ctx context.Context, courseID string) (*tree, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	path, ok := p.paths[courseID]
	if !ok {
		if err := p.scan(); err != nil {
			return nil, err
		}
		if path, ok = p.paths[courseID]; !ok {
			return nil, fmt.Errorf("course %s: %w", courseID, coreerrors.ErrNotFound)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		delete(p.paths, courseID)
		delete(p.entries, path)
		return nil, fmt.Errorf("course %s: stat outline: %w", courseID, err)
	}

	if cached, ok := p.entries[path]; ok && cached.modTime.Equal(info.ModTime()) {
		return cached.tree, nil
	}

	t, err := parseOutlineFile(path)
	if err != nil {
		return nil, err
	}
	if t == nil || t.courseID != courseID {
		// The file was emptied or rewritten for another course. The next
		// lookup rescans the directory.
		delete(p.paths, courseID)
		delete(p.entries, path)
		if t == nil {
			return nil, fmt.Errorf("course %s: outline %s is empty: %w", courseID, path, coreerrors.ErrNotFound)
		}
		return nil, fmt.Errorf("course %s: outline %s now describes %s: %w",
			courseID, path, t.courseID, coreerrors.ErrNotFound)
	}

	p.entries[path] = cachedOutline{modTime: info.ModTime(), tree: t}
	slog.Debug("[ContentProvider] Parsed outline", "course_id", courseID, "path", path)
	return t, nil
}

// scan rebuilds the course -> file index. Callers hold p.mu.
func (p *FileSystemProvider) scan() error {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return fmt.Errorf("reading content dir: %w", err)
	}

	paths := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() || (!strings.HasSuffix(e.Name(), ".yaml") && !strings.HasSuffix(e.Name(), ".yml")) {
			continue
		}

		path := filepath.Join(p.dir, e.Name())
		info, err := e.Info()
		if err != nil {
			return fmt.Errorf("stat outline %s: %w", path, err)
		}

		t, err := parseOutlineFile(path)
		if err != nil {
			return err
		}
		if t == nil {
			continue
		}
		if other, exists := paths[t.courseID]; exists {
			return fmt.Errorf("course %q: duplicate outline (%s and %s)", t.courseID, other, path)
		}
		paths[t.courseID] = path
		p.entries[path] = cachedOutline{modTime: info.ModTime(), tree: t}
	}

	p.paths = paths
	return nil
}

// parseOutlineFile returns nil, nil for empty or comment-only files.
func parseOutlineFile(path string) (*tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading outline %s: %w", path, err)
	}

	var o Outline
	if err := yaml.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("parsing outline %s: %w", path, err)
	}
	if o.CourseID == "" && len(o.Blocks) == 0 {
		return nil, nil
	}

	t, err := buildTree(o)
	if err != nil {
		return nil, fmt.Errorf("outline %s: %w", path, err)
	}
	return t, nil
}
