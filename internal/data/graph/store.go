package graph

import (
	"context"

	"github.com/cnogradi/training-consolidation-workbench/internal/domain"
)

// SectionRecord is one section row for batch upserts and tree loads.
// ParentID refers to either the owning Course or the parent Section.
type SectionRecord struct {
	ID       string
	ParentID string
	Title    string
	Level    int
}

// TeachRow is one (owner, slide, concept, salience) tuple from a course
// subtree. OwnerID is the Course or Section the slide hangs off.
type TeachRow struct {
	OwnerID     string
	SlideID     string
	ConceptName string
	Salience    float64
}

// CourseTree is the in-memory arena for bottom-up salience aggregation.
type CourseTree struct {
	CourseID string
	Sections []SectionRecord
	Teaches  []TeachRow
}

// ConceptWeight is a concept with the maximum TEACHES salience observed in
// one source unit's subtree.
type ConceptWeight struct {
	Name        string
	MaxSalience float64
}

// SourceUnit is one leaf target unit of a generation request: a Section, or
// a Course without sections used as-is.
type SourceUnit struct {
	ID           string
	Title        string
	BusinessUnit string
	CourseID     string
	Concepts     []ConceptWeight
}

// SlideRef is a slide id plus its stored text preview.
type SlideRef struct {
	ID   string
	Text string
}

// MasterSection is one section of a master course outline, with its
// aggregated concept summary.
type MasterSection struct {
	ID       string
	Title    string
	Level    int
	Concepts []string
}

// TargetNodeRecord is one generated section ready for persistence, with the
// slide ids it suggests.
type TargetNodeRecord struct {
	Node     domain.TargetNode
	SlideIDs []string
}

// Store is the typed boundary to the property graph. Writes are
// upsert/merge-idempotent by entity key unless noted.
type Store interface {
	UpsertCourse(ctx context.Context, course domain.Course) error
	UpsertSections(ctx context.Context, rows []SectionRecord) error
	UpsertSlide(ctx context.Context, courseID string, slide domain.Slide) error
	UpsertSlideConcepts(ctx context.Context, slideID string, concepts []domain.ConceptSalience) error
	SetSectionConceptSummaries(ctx context.Context, summaries map[string][]string) error

	CourseTree(ctx context.Context, courseID string) (*CourseTree, error)

	DistinctConceptNames(ctx context.Context) ([]string, error)
	ApplyConceptCluster(ctx context.Context, cluster domain.ConceptCluster) error

	ExpandSources(ctx context.Context, sourceIDs []string) ([]SourceUnit, error)
	SlidesForCourses(ctx context.Context, courseIDs []string) ([]SlideRef, error)
	MasterOutline(ctx context.Context, courseID string) ([]MasterSection, error)

	// CreateProject writes the project and all of its target nodes in one
	// transaction: a failure leaves no partial project behind.
	CreateProject(ctx context.Context, project domain.Project, nodes []TargetNodeRecord) error
}
