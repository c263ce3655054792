package ingest

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cnogradi/training-consolidation-workbench/internal/data/graph"
	"github.com/cnogradi/training-consolidation-workbench/internal/domain"
	"github.com/cnogradi/training-consolidation-workbench/internal/platform/ctxutil"
	"github.com/cnogradi/training-consolidation-workbench/internal/platform/envutil"
	"github.com/cnogradi/training-consolidation-workbench/internal/platform/logger"
	"github.com/cnogradi/training-consolidation-workbench/internal/prediction"
	"github.com/cnogradi/training-consolidation-workbench/internal/vectorindex"
)

// Config holds the tunables of the ingestion aggregator.
type Config struct {
	ChunkLimit        int
	SlidePreviewChars int
	SummarySize       int
}

func ConfigFromEnv() Config {
	return Config{
		ChunkLimit:        envutil.Int("WB_CHUNK_LIMIT", 1500),
		SlidePreviewChars: envutil.Int("WB_SLIDE_PREVIEW_CHARS", 500),
		SummarySize:       envutil.Int("WB_SECTION_SUMMARY_SIZE", 5),
	}
}

// CourseArtifact is one source document ready for aggregation: course
// metadata plus the raw text elements its parser produced.
type CourseArtifact struct {
	Course   domain.Course
	Filename string
	Elements []domain.TextElement
}

// Aggregator turns a parsed course document into graph structure: the course
// node, its outline sections, one slide per page group, TEACHES edges, and
// slide vectors. Per-slide model or index failures are logged and skipped so
// one bad slide never aborts a whole course.
type Aggregator struct {
	log     *logger.Logger
	graph   graph.Store
	predict prediction.Service
	index   vectorindex.Index
	cfg     Config
}

func NewAggregator(log *logger.Logger, store graph.Store, predict prediction.Service, index vectorindex.Index, cfg Config) (*Aggregator, error) {
	if log == nil {
		return nil, fmt.Errorf("ingest: logger required")
	}
	if store == nil {
		return nil, fmt.Errorf("ingest: graph store required")
	}
	if predict == nil {
		return nil, fmt.Errorf("ingest: prediction service required")
	}
	if cfg.ChunkLimit <= 0 {
		cfg.ChunkLimit = 1500
	}
	if cfg.SlidePreviewChars <= 0 {
		cfg.SlidePreviewChars = 500
	}
	if cfg.SummarySize <= 0 {
		cfg.SummarySize = 5
	}
	return &Aggregator{
		log:     log.With("service", "IngestionAggregator"),
		graph:   store,
		predict: predict,
		index:   index,
		cfg:     cfg,
	}, nil
}

// Run ingests one course artifact end to end and finishes with the bottom-up
// section summary aggregation.
func (a *Aggregator) Run(ctx context.Context, artifact CourseArtifact) error {
	ctx = ctxutil.Default(ctx)

	courseID := strings.TrimSpace(artifact.Course.ID)
	if courseID == "" {
		return fmt.Errorf("ingest: course id required")
	}
	artifact.Course.ID = courseID

	if err := a.graph.UpsertCourse(ctx, artifact.Course); err != nil {
		return fmt.Errorf("ingest: upsert course %s: %w", courseID, err)
	}

	if err := a.ingestOutline(ctx, courseID, artifact.Elements); err != nil {
		// Outline extraction is best effort; slides still attach to the course.
		a.log.Warn("Outline extraction failed, continuing without sections",
			"course_id", courseID, "error", err)
	}

	assetType := domain.AssetTypeFromFilename(artifact.Filename)
	groups := GroupPages(artifact.Elements, a.cfg.ChunkLimit)

	for _, group := range groups {
		text := strings.TrimSpace(strings.Join(group.Texts, "\n"))
		if text == "" {
			continue
		}

		slide := domain.Slide{
			ID:        fmt.Sprintf("%s_p%d", courseID, group.Number),
			Number:    group.Number,
			Text:      truncate(text, a.cfg.SlidePreviewChars),
			AssetType: assetType,
		}
		if err := a.graph.UpsertSlide(ctx, courseID, slide); err != nil {
			return fmt.Errorf("ingest: upsert slide %s: %w", slide.ID, err)
		}

		concepts, err := a.predict.ExtractConcepts(ctx, text)
		if err != nil {
			a.log.Warn("Concept extraction failed for slide", "slide_id", slide.ID, "error", err)
		} else if len(concepts) > 0 {
			if err := a.graph.UpsertSlideConcepts(ctx, slide.ID, concepts); err != nil {
				return fmt.Errorf("ingest: upsert concepts for slide %s: %w", slide.ID, err)
			}
		}

		if a.index != nil {
			if err := a.index.UpsertSlide(ctx, slide.ID, courseID, text); err != nil {
				a.log.Warn("Vector indexing failed for slide", "slide_id", slide.ID, "error", err)
			}
		}
	}

	if err := a.AggregateSections(ctx, courseID); err != nil {
		return err
	}

	a.log.Info("Course ingested", "course_id", courseID, "slides", len(groups))
	return nil
}

// ingestOutline extracts the document outline and persists it as a Section
// tree. Section ids are positional under their parent ({parent}_s{i}), so
// re-ingesting the same document is idempotent.
func (a *Aggregator) ingestOutline(ctx context.Context, courseID string, elements []domain.TextElement) error {
	var b strings.Builder
	for _, el := range elements {
		t := strings.TrimSpace(el.Text)
		if t == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(t)
	}
	if b.Len() == 0 {
		return nil
	}

	nodes, err := a.predict.ExtractOutline(ctx, b.String())
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return nil
	}

	var rows []graph.SectionRecord
	var walk func(parentID string, level int, nodes []domain.OutlineNode)
	walk = func(parentID string, level int, nodes []domain.OutlineNode) {
		for i, n := range nodes {
			id := fmt.Sprintf("%s_s%d", parentID, i)
			rows = append(rows, graph.SectionRecord{
				ID:       id,
				ParentID: parentID,
				Title:    n.Title,
				Level:    level,
			})
			walk(id, level+1, n.Subsections)
		}
	}
	walk(courseID, 1, nodes)

	return a.graph.UpsertSections(ctx, rows)
}

// AggregateSections recomputes concept_summary for every section of a course
// in one pass: load the subtree, sum TEACHES salience bottom-up in memory,
// then write all summaries in a single batch.
func (a *Aggregator) AggregateSections(ctx context.Context, courseID string) error {
	ctx = ctxutil.Default(ctx)

	tree, err := a.graph.CourseTree(ctx, courseID)
	if err != nil {
		return fmt.Errorf("ingest: load course tree %s: %w", courseID, err)
	}
	if len(tree.Sections) == 0 {
		return nil
	}

	children := make(map[string][]string, len(tree.Sections))
	for _, s := range tree.Sections {
		children[s.ParentID] = append(children[s.ParentID], s.ID)
	}
	for _, ids := range children {
		sort.Strings(ids)
	}

	// Salience of slides attached directly to each owner node.
	own := make(map[string]map[string]float64)
	for _, row := range tree.Teaches {
		m := own[row.OwnerID]
		if m == nil {
			m = make(map[string]float64)
			own[row.OwnerID] = m
		}
		m[row.ConceptName] += row.Salience
	}

	// Post-order accumulation: a section's totals include every descendant.
	totals := make(map[string]map[string]float64, len(tree.Sections))
	var accumulate func(id string) map[string]float64
	accumulate = func(id string) map[string]float64 {
		sums := make(map[string]float64)
		for name, s := range own[id] {
			sums[name] += s
		}
		for _, child := range children[id] {
			for name, s := range accumulate(child) {
				sums[name] += s
			}
		}
		totals[id] = sums
		return sums
	}
	accumulate(tree.CourseID)

	summaries := make(map[string][]string, len(tree.Sections))
	for _, s := range tree.Sections {
		summaries[s.ID] = topConcepts(totals[s.ID], a.cfg.SummarySize)
	}

	if err := a.graph.SetSectionConceptSummaries(ctx, summaries); err != nil {
		return fmt.Errorf("ingest: write section summaries %s: %w", courseID, err)
	}

	a.log.Info("Section summaries aggregated", "course_id", courseID, "sections", len(summaries))
	return nil
}

// topConcepts ranks by summed salience descending, name ascending on ties.
func topConcepts(sums map[string]float64, n int) []string {
	names := make([]string, 0, len(sums))
	for name := range sums {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if sums[names[i]] != sums[names[j]] {
			return sums[names[i]] > sums[names[j]]
		}
		return names[i] < names[j]
	})
	if len(names) > n {
		names = names[:n]
	}
	return names
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
