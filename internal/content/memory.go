package content

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aevon-lab/completion-aggregator/internal/core/completion"
	coreerrors "github.com/aevon-lab/completion-aggregator/internal/core/errors"
)

var _ Provider = (*MemoryProvider)(nil)

// MemoryProvider is a mutable in-process tree used by tests and local runs.
// Trees may be edited between runs to simulate content changes.
type MemoryProvider struct {
	mu       sync.Mutex
	roots    map[string]completion.Block
	children map[string]map[string][]completion.Block // course -> parent -> children

	err           error
	delay         time.Duration
	childrenCalls map[string]int
}

// NewMemoryProvider returns an empty provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{
		roots:         make(map[string]completion.Block),
		children:      make(map[string]map[string][]completion.Block),
		childrenCalls: make(map[string]int),
	}
}

// SetRoot registers (or replaces) the root of a course.
func (m *MemoryProvider) SetRoot(courseID string, root completion.Block) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.roots[courseID] = root
	if m.children[courseID] == nil {
		m.children[courseID] = make(map[string][]completion.Block)
	}
}

// SetChildren replaces the children of parentID.
func (m *MemoryProvider) SetChildren(courseID, parentID string, children ...completion.Block) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.children[courseID] == nil {
		m.children[courseID] = make(map[string][]completion.Block)
	}
	m.children[courseID][parentID] = append([]completion.Block(nil), children...)
}

// LoadOutline replaces a course with the contents of an outline.
func (m *MemoryProvider) LoadOutline(o Outline) error {
	t, err := buildTree(o)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.roots[t.courseID] = t.rootBlock()
	kids := make(map[string][]completion.Block, len(t.children))
	for parent := range t.children {
		blocks, _ := t.childBlocks(parent)
		kids[parent] = blocks
	}
	m.children[t.courseID] = kids
	return nil
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (m *MemoryProvider) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetDelay makes every call wait d or until the context is done.
func (m *MemoryProvider) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// ChildrenCalls reports how many times blockID was expanded.
func (m *MemoryProvider) ChildrenCalls(blockID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.childrenCalls[blockID]
}

// Root returns the course root.
func (m *MemoryProvider) Root(ctx context.Context, courseID string) (completion.Block, error) {
	if err := m.wait(ctx); err != nil {
		return completion.Block{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	root, ok := m.roots[courseID]
	if !ok {
		return completion.Block{}, fmt.Errorf("course %s: %w", courseID, coreerrors.ErrNotFound)
	}
	return root, nil
}

// Children returns the children registered for blockID.
func (m *MemoryProvider) Children(ctx context.Context, courseID, blockID string) ([]completion.Block, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.childrenCalls[blockID]++
	course, ok := m.children[courseID]
	if !ok {
		return nil, fmt.Errorf("course %s: %w", courseID, coreerrors.ErrNotFound)
	}
	return append([]completion.Block(nil), course[blockID]...), nil
}

func (m *MemoryProvider) wait(ctx context.Context) error {
	m.mu.Lock()
	delay, err := m.delay, m.err
	m.mu.Unlock()

	if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}
