package completion

import (
	"fmt"
	"strings"
	"time"
)

// Role is the aggregation role a block declares in the content tree.
type Role string

const (
	RoleAggregator  Role = "aggregator"
	RoleCompletable Role = "completable"
	RoleExcluded    Role = "excluded"

	// RoleUnknown is assigned to any role string the engine does not recognise.
	// It aggregates exactly like RoleExcluded.
	RoleUnknown Role = "unknown"
)

// ParseRole maps a provider-supplied role name onto a Role. Matching is
// case-insensitive; anything unrecognised becomes RoleUnknown.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleAggregator:
		return RoleAggregator
	case RoleCompletable:
		return RoleCompletable
	case RoleExcluded:
		return RoleExcluded
	default:
		return RoleUnknown
	}
}

// Block is one node of a course's content tree as reported by the provider.
type Block struct {
	ID   string
	Type string // aggregation name: course, chapter, sequential, vertical, html, ...
	Role Role
}

// Pair identifies the unit of recomputation: one learner in one course.
type Pair struct {
	LearnerID string
	CourseID  string
}

func (p Pair) String() string {
	return p.LearnerID + "/" + p.CourseID
}

// Validate ensures both halves of the pair are present.
func (p Pair) Validate() error {
	if p.LearnerID == "" {
		return fmt.Errorf("learner_id is required")
	}
	if p.CourseID == "" {
		return fmt.Errorf("course_id is required")
	}
	return nil
}

// Fact is a leaf completion record. Unique per (learner, block).
type Fact struct {
	LearnerID  string
	CourseID   string
	BlockID    string
	Completion float64 // in [0, 1]
	ModifiedAt time.Time
}

// Validate checks identifiers and the completion range.
func (f Fact) Validate() error {
	if err := (Pair{LearnerID: f.LearnerID, CourseID: f.CourseID}).Validate(); err != nil {
		return err
	}
	if f.BlockID == "" {
		return fmt.Errorf("block_id is required")
	}
	if f.Completion < 0 || f.Completion > 1 {
		return fmt.Errorf("completion %v out of range [0, 1]", f.Completion)
	}
	return nil
}

// FactSnapshot is the result of one bulk fact read for a pair.
// ReadAt is captured before the read starts; every marker created at or
// before ReadAt refers to a fact contained in Facts.
type FactSnapshot struct {
	Facts  map[string]Fact // keyed by BlockID
	ReadAt time.Time
}

// Marker is a staleness hint for a pair. BlockID is informational only.
type Marker struct {
	ID         int64
	LearnerID  string
	CourseID   string
	BlockID    string
	CreatedAt  time.Time
	Resolved   bool
	ResolvedAt time.Time
}

// Pair returns the (learner, course) the marker refers to.
func (m Marker) Pair() Pair {
	return Pair{LearnerID: m.LearnerID, CourseID: m.CourseID}
}
