package content

import (
	"context"
	"fmt"
	"strings"

	"github.com/aevon-lab/completion-aggregator/internal/core/completion"
	coreerrors "github.com/aevon-lab/completion-aggregator/internal/core/errors"
)

// Provider is the authoritative source of a course's block tree. It may be
// slow or briefly stale; callers never cache its answers across runs.
type Provider interface {
	// Root returns the course's root block.
	Root(ctx context.Context, courseID string) (completion.Block, error)

	// Children returns the immediate children of blockID in order. Blocks
	// that are not aggregators have no children.
	Children(ctx context.Context, courseID, blockID string) ([]completion.Block, error)
}

// Outline is the on-disk description of one course tree: a flat block list
// with child references.
type Outline struct {
	CourseID string         `yaml:"course_id"`
	Root     string         `yaml:"root"`
	Blocks   []OutlineBlock `yaml:"blocks"`
}

// OutlineBlock is one block entry of an Outline.
type OutlineBlock struct {
	ID       string   `yaml:"id"`
	Type     string   `yaml:"type"`
	Role     string   `yaml:"role"` // aggregator | completable | excluded; inferred when empty
	Children []string `yaml:"children"`
}

// tree is the parsed, indexed form of an Outline.
type tree struct {
	courseID string
	root     string
	blocks   map[string]completion.Block
	children map[string][]string
}

// buildTree indexes an outline. Cycles are not rejected here; the updater
// detects them during its walk.
func buildTree(o Outline) (*tree, error) {
	if strings.TrimSpace(o.CourseID) == "" {
		return nil, fmt.Errorf("outline: course_id is required: %w", coreerrors.ErrStructural)
	}

	t := &tree{
		courseID: o.CourseID,
		root:     o.Root,
		blocks:   make(map[string]completion.Block, len(o.Blocks)),
		children: make(map[string][]string, len(o.Blocks)),
	}

	for _, b := range o.Blocks {
		if b.ID == "" {
			return nil, fmt.Errorf("outline %s: block without id: %w", o.CourseID, coreerrors.ErrStructural)
		}
		if _, dup := t.blocks[b.ID]; dup {
			return nil, fmt.Errorf("outline %s: duplicate block %q: %w", o.CourseID, b.ID, coreerrors.ErrStructural)
		}

		role := inferRole(b)
		t.blocks[b.ID] = completion.Block{ID: b.ID, Type: b.Type, Role: role}
		if role == completion.RoleAggregator {
			t.children[b.ID] = append([]string(nil), b.Children...)
		}
	}

	if t.root == "" && len(o.Blocks) > 0 {
		t.root = o.Blocks[0].ID
	}
	if _, ok := t.blocks[t.root]; !ok {
		return nil, fmt.Errorf("outline %s: root %q is not a block: %w", o.CourseID, t.root, coreerrors.ErrStructural)
	}
	for parent, kids := range t.children {
		for _, kid := range kids {
			if _, ok := t.blocks[kid]; !ok {
				return nil, fmt.Errorf("outline %s: block %q references unknown child %q: %w",
					o.CourseID, parent, kid, coreerrors.ErrStructural)
			}
		}
	}
	return t, nil
}

// containerTypes are block types that group content. They stay aggregators
// even when an outline lists no children for them.
var containerTypes = func() map[string]bool {
	m := make(map[string]bool, len(completion.DefaultRegisteredTypes))
	for _, typ := range completion.DefaultRegisteredTypes {
		m[typ] = true
	}
	return m
}()

// inferRole honours an explicit role; otherwise a block with children or of a
// container type is an aggregator and any other block is completable.
func inferRole(b OutlineBlock) completion.Role {
	if b.Role != "" {
		return completion.ParseRole(b.Role)
	}
	if len(b.Children) > 0 || containerTypes[completion.NormalizeName(b.Type)] {
		return completion.RoleAggregator
	}
	return completion.RoleCompletable
}

func (t *tree) rootBlock() completion.Block {
	return t.blocks[t.root]
}

func (t *tree) childBlocks(blockID string) ([]completion.Block, error) {
	if _, ok := t.blocks[blockID]; !ok {
		return nil, fmt.Errorf("block %q in course %s: %w", blockID, t.courseID, coreerrors.ErrNotFound)
	}
	ids := t.children[blockID]
	out := make([]completion.Block, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.blocks[id])
	}
	return out, nil
}
