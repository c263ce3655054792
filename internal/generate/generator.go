package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cnogradi/training-consolidation-workbench/internal/curriculum"
	"github.com/cnogradi/training-consolidation-workbench/internal/data/graph"
	"github.com/cnogradi/training-consolidation-workbench/internal/domain"
	"github.com/cnogradi/training-consolidation-workbench/internal/platform/ctxutil"
	"github.com/cnogradi/training-consolidation-workbench/internal/platform/envutil"
	"github.com/cnogradi/training-consolidation-workbench/internal/platform/logger"
	"github.com/cnogradi/training-consolidation-workbench/internal/prediction"
	"github.com/cnogradi/training-consolidation-workbench/internal/vectorindex"
)

// ErrNoSourceData means none of the requested source ids expanded to a unit
// with usable content.
var ErrNoSourceData = errors.New("generate: no source data found for the given ids")

const (
	gapRationaleSuffix = " (Content missing from source material - Please add manually)"

	unassignedTitle     = "Unassigned / For Review"
	unassignedRationale = "Slides available in source material but not used by the generated structure."
	unassignedCategory  = "review"

	defaultProjectTitle = "Consolidated Training Program"
)

// Config holds the generation thresholds and limits.
type Config struct {
	PrimaryThreshold   float64
	SecondaryThreshold float64
	TopConcepts        int
	FallbackConcepts   int

	MinSimilarity     float64
	PerConceptHits    int
	MaxSlides         int
	RetrievalConcepts int

	PreviewChars int
}

func ConfigFromEnv() Config {
	return Config{
		PrimaryThreshold:   envutil.Float("WB_SALIENCE_PRIMARY", 0.8),
		SecondaryThreshold: envutil.Float("WB_SALIENCE_SECONDARY", 0.5),
		TopConcepts:        envutil.Int("WB_OUTLINE_TOP_CONCEPTS", 15),
		FallbackConcepts:   5,
		MinSimilarity:      envutil.Float("WB_RETRIEVAL_MIN_SIMILARITY", 0.65),
		PerConceptHits:     envutil.Int("WB_RETRIEVAL_PER_CONCEPT", 2),
		MaxSlides:          envutil.Int("WB_RETRIEVAL_MAX_SLIDES", 6),
		RetrievalConcepts:  envutil.Int("WB_RETRIEVAL_MAX_CONCEPTS", 5),
		PreviewChars:       100,
	}
}

// Request selects the sources to consolidate. When MasterCourseID is set the
// skeleton comes from that course's stored outline instead of the model.
type Request struct {
	SourceIDs      []string
	Title          string
	MasterCourseID string
}

// Response is the persisted draft project plus its ordered sections.
type Response struct {
	ProjectID string
	Title     string
	Sections  []domain.TargetSection
}

// Generator builds a consolidated course proposal out of ingested sources:
// weighted outlines in, skeleton from the model (or a master course),
// grounded slide suggestions, gap flags, and a persisted draft project out.
type Generator struct {
	log      *logger.Logger
	graph    graph.Store
	predict  prediction.Service
	index    vectorindex.Index
	template curriculum.Template
	cfg      Config
	now      func() time.Time
}

func New(log *logger.Logger, store graph.Store, predict prediction.Service, index vectorindex.Index, tpl curriculum.Template, cfg Config) (*Generator, error) {
	if log == nil {
		return nil, fmt.Errorf("generate: logger required")
	}
	if store == nil {
		return nil, fmt.Errorf("generate: graph store required")
	}
	if predict == nil {
		return nil, fmt.Errorf("generate: prediction service required")
	}
	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	if cfg.TopConcepts <= 0 {
		cfg.TopConcepts = 15
	}
	if cfg.FallbackConcepts <= 0 {
		cfg.FallbackConcepts = 5
	}
	if cfg.PerConceptHits <= 0 {
		cfg.PerConceptHits = 2
	}
	if cfg.MaxSlides <= 0 {
		cfg.MaxSlides = 6
	}
	if cfg.RetrievalConcepts <= 0 {
		cfg.RetrievalConcepts = 5
	}
	if cfg.PreviewChars <= 0 {
		cfg.PreviewChars = 100
	}
	return &Generator{
		log:      log.With("service", "CourseGenerator"),
		graph:    store,
		predict:  predict,
		index:    index,
		template: tpl,
		cfg:      cfg,
		now:      time.Now,
	}, nil
}

// sourceData is everything fetchOutlines learns about the selected sources.
type sourceData struct {
	units     []graph.SourceUnit
	outlines  []domain.WeightedOutline
	known     map[string]bool
	courseIDs []string
}

// Generate runs the full pipeline. Any failure after skeleton parsing is
// fatal for the whole request; no partial project is returned.
func (g *Generator) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx = ctxutil.Default(ctx)

	data, err := g.fetchOutlines(ctx, req.SourceIDs)
	if err != nil {
		return nil, err
	}

	var sections []domain.TargetSection
	if strings.TrimSpace(req.MasterCourseID) != "" {
		sections, err = g.masterSections(ctx, req.MasterCourseID)
		if err != nil {
			return nil, err
		}
	} else {
		raw, err := g.predict.GenerateSkeleton(ctx, data.outlines)
		if err != nil {
			return nil, fmt.Errorf("generate: skeleton: %w", err)
		}
		sections = g.parseSkeleton(raw, data)
	}

	for i := range sections {
		g.enrich(ctx, &sections[i], data)
	}

	unassigned, err := g.unassignedSection(ctx, sections, data.courseIDs)
	if err != nil {
		return nil, err
	}
	if unassigned != nil {
		sections = append(sections, *unassigned)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = defaultProjectTitle
	}
	projectID, err := g.persist(ctx, title, sections)
	if err != nil {
		return nil, err
	}

	g.log.Info("Project generated", "project_id", projectID, "sections", len(sections))
	return &Response{ProjectID: projectID, Title: title, Sections: sections}, nil
}

// fetchOutlines expands the source ids to leaf units and builds the weighted
// outline for each: top concepts by max salience, tagged with an importance
// bucket. The known set covers every concept of every unit, not just the
// tagged top.
func (g *Generator) fetchOutlines(ctx context.Context, sourceIDs []string) (*sourceData, error) {
	units, err := g.graph.ExpandSources(ctx, sourceIDs)
	if err != nil {
		return nil, fmt.Errorf("generate: expand sources: %w", err)
	}

	data := &sourceData{known: make(map[string]bool)}
	courseSeen := make(map[string]bool)

	for _, unit := range units {
		if strings.TrimSpace(unit.Title) == "" {
			continue
		}
		data.units = append(data.units, unit)

		if unit.CourseID != "" && !courseSeen[unit.CourseID] {
			courseSeen[unit.CourseID] = true
			data.courseIDs = append(data.courseIDs, unit.CourseID)
		}
		for _, c := range unit.Concepts {
			data.known[c.Name] = true
		}

		data.outlines = append(data.outlines, domain.WeightedOutline{
			BusinessUnit: unit.BusinessUnit,
			SectionTitle: unit.Title,
			Concepts:     g.tagConcepts(unit.Concepts),
		})
	}

	if len(data.outlines) == 0 {
		return nil, ErrNoSourceData
	}
	sort.Strings(data.courseIDs)
	return data, nil
}

// tagConcepts ranks a unit's concepts by max salience (name ascending on
// ties), keeps the top N, and renders each as "Name (Bucket)".
func (g *Generator) tagConcepts(weights []graph.ConceptWeight) []string {
	sorted := make([]graph.ConceptWeight, len(weights))
	copy(sorted, weights)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].MaxSalience != sorted[j].MaxSalience {
			return sorted[i].MaxSalience > sorted[j].MaxSalience
		}
		return sorted[i].Name < sorted[j].Name
	})
	if len(sorted) > g.cfg.TopConcepts {
		sorted = sorted[:g.cfg.TopConcepts]
	}

	out := make([]string, 0, len(sorted))
	for _, w := range sorted {
		bucket := "Mention"
		switch {
		case w.MaxSalience >= g.cfg.PrimaryThreshold:
			bucket = "Primary"
		case w.MaxSalience >= g.cfg.SecondaryThreshold:
			bucket = "Secondary"
		}
		out = append(out, fmt.Sprintf("%s (%s)", w.Name, bucket))
	}
	return out
}

type sectionJSON struct {
	Title       string   `json:"title"`
	Rationale   string   `json:"rationale"`
	KeyConcepts []string `json:"key_concepts"`
}

func (s sectionJSON) toTarget(category string) domain.TargetSection {
	return domain.TargetSection{
		Title:       s.Title,
		Rationale:   s.Rationale,
		KeyConcepts: s.KeyConcepts,
		Category:    category,
	}
}

// parseSkeleton accepts exactly two model output shapes. The preferred one is
// a mapping keyed by template module, walked in template order; keys the
// model omitted are skipped. The legacy one is a flat section list. Anything
// else falls back to a deterministic one-section-per-source plan.
func (g *Generator) parseSkeleton(raw json.RawMessage, data *sourceData) []domain.TargetSection {
	var byModule map[string]json.RawMessage
	if err := json.Unmarshal(raw, &byModule); err == nil {
		sections, ok := g.parseTemplated(byModule)
		if ok {
			return sections
		}
		g.log.Warn("Skeleton mapping malformed, using fallback plan")
		return g.fallbackSections(data)
	}

	var flat []sectionJSON
	if err := json.Unmarshal(raw, &flat); err == nil {
		out := make([]domain.TargetSection, 0, len(flat))
		for _, s := range flat {
			if strings.TrimSpace(s.Title) == "" {
				continue
			}
			out = append(out, s.toTarget("technical"))
		}
		return out
	}

	g.log.Warn("Skeleton output unrecognized, using fallback plan")
	return g.fallbackSections(data)
}

func (g *Generator) parseTemplated(byModule map[string]json.RawMessage) ([]domain.TargetSection, bool) {
	var out []domain.TargetSection
	for _, m := range g.template.Modules {
		raw, present := byModule[m.Key]
		if !present {
			continue
		}
		if m.IsList {
			var many []sectionJSON
			if err := json.Unmarshal(raw, &many); err != nil {
				return nil, false
			}
			for _, s := range many {
				if strings.TrimSpace(s.Title) == "" {
					continue
				}
				out = append(out, s.toTarget(m.Type))
			}
			continue
		}
		var one sectionJSON
		if err := json.Unmarshal(raw, &one); err != nil {
			return nil, false
		}
		if strings.TrimSpace(one.Title) == "" {
			continue
		}
		out = append(out, one.toTarget(m.Type))
	}
	return out, true
}

// fallbackSections mirrors the sources one to one when the model output is
// unusable: one section per unit with its top raw concept names.
func (g *Generator) fallbackSections(data *sourceData) []domain.TargetSection {
	out := make([]domain.TargetSection, 0, len(data.units))
	for _, unit := range data.units {
		sorted := make([]graph.ConceptWeight, len(unit.Concepts))
		copy(sorted, unit.Concepts)
		sort.Slice(sorted, func(i, j int) bool {
			if sorted[i].MaxSalience != sorted[j].MaxSalience {
				return sorted[i].MaxSalience > sorted[j].MaxSalience
			}
			return sorted[i].Name < sorted[j].Name
		})
		if len(sorted) > g.cfg.FallbackConcepts {
			sorted = sorted[:g.cfg.FallbackConcepts]
		}
		concepts := make([]string, 0, len(sorted))
		for _, w := range sorted {
			concepts = append(concepts, w.Name)
		}
		out = append(out, domain.TargetSection{
			Title:       unit.Title,
			Rationale:   fmt.Sprintf("Based on content from %s", unit.BusinessUnit),
			KeyConcepts: concepts,
			Category:    "technical",
		})
	}
	return out
}

// masterSections derives the skeleton from a previously ingested master
// course instead of the model.
func (g *Generator) masterSections(ctx context.Context, masterCourseID string) ([]domain.TargetSection, error) {
	master, err := g.graph.MasterOutline(ctx, masterCourseID)
	if err != nil {
		return nil, fmt.Errorf("generate: master outline %s: %w", masterCourseID, err)
	}
	if len(master) == 0 {
		return nil, fmt.Errorf("generate: master course %s has no sections", masterCourseID)
	}

	out := make([]domain.TargetSection, 0, len(master))
	for _, s := range master {
		concepts := s.Concepts
		if len(concepts) > 10 {
			concepts = concepts[:10]
		}
		out = append(out, domain.TargetSection{
			Title:       s.Title,
			Rationale:   fmt.Sprintf("From master course: %s", s.Title),
			KeyConcepts: concepts,
			Category:    "technical",
		})
	}
	return out, nil
}

// enrich decides between gap flagging and retrieval for one section. A
// section whose key concepts are all unknown to the sources is a content gap:
// it gets the gap suffix and no suggestions. Otherwise the first few concepts
// each retrieve a couple of slides, first concept wins on duplicates, capped
// overall.
func (g *Generator) enrich(ctx context.Context, section *domain.TargetSection, data *sourceData) {
	if section.IsUnassigned {
		return
	}

	matching := 0
	for _, name := range section.KeyConcepts {
		if data.known[baseConcept(name)] {
			matching++
		}
	}
	if len(section.KeyConcepts) > 0 && matching == 0 {
		section.Rationale += gapRationaleSuffix
		section.SuggestedSlides = nil
		return
	}

	if g.index == nil {
		return
	}

	concepts := section.KeyConcepts
	if len(concepts) > g.cfg.RetrievalConcepts {
		concepts = concepts[:g.cfg.RetrievalConcepts]
	}

	seen := make(map[string]bool)
	var suggestions []domain.SlideSuggestion
	for _, concept := range concepts {
		if len(suggestions) >= g.cfg.MaxSlides {
			break
		}
		hits, err := g.index.Query(ctx, []string{concept}, g.cfg.MinSimilarity, data.courseIDs, g.cfg.PerConceptHits)
		if err != nil {
			g.log.Warn("Slide retrieval failed for concept", "concept", concept, "error", err)
			continue
		}
		for _, hit := range hits {
			if seen[hit.SlideID] {
				continue
			}
			if len(suggestions) >= g.cfg.MaxSlides {
				break
			}
			seen[hit.SlideID] = true
			suggestions = append(suggestions, domain.SlideSuggestion{
				SlideID:     hit.SlideID,
				TextPreview: truncate(hit.Text, g.cfg.PreviewChars),
				MatchReason: concept,
			})
		}
	}
	section.SuggestedSlides = suggestions
}

// unassignedSection lists every source slide no generated section claimed,
// so reviewers can see what the proposal left out. Nil when nothing is left.
func (g *Generator) unassignedSection(ctx context.Context, sections []domain.TargetSection, courseIDs []string) (*domain.TargetSection, error) {
	slides, err := g.graph.SlidesForCourses(ctx, courseIDs)
	if err != nil {
		return nil, fmt.Errorf("generate: list source slides: %w", err)
	}

	used := make(map[string]bool)
	for _, s := range sections {
		for _, sg := range s.SuggestedSlides {
			used[sg.SlideID] = true
		}
	}

	var leftover []graph.SlideRef
	for _, s := range slides {
		if !used[s.ID] {
			leftover = append(leftover, s)
		}
	}
	if len(leftover) == 0 {
		return nil, nil
	}
	sort.Slice(leftover, func(i, j int) bool { return leftover[i].ID < leftover[j].ID })

	suggestions := make([]domain.SlideSuggestion, 0, len(leftover))
	for _, s := range leftover {
		suggestions = append(suggestions, domain.SlideSuggestion{
			SlideID:     s.ID,
			TextPreview: truncate(s.Text, g.cfg.PreviewChars),
			MatchReason: "unassigned",
		})
	}

	return &domain.TargetSection{
		Title:           unassignedTitle,
		Rationale:       unassignedRationale,
		Category:        unassignedCategory,
		SuggestedSlides: suggestions,
		IsUnassigned:    true,
	}, nil
}

// persist writes the draft project with its ordered target nodes in one
// transactional store call, so a failed request leaves no partial project.
func (g *Generator) persist(ctx context.Context, title string, sections []domain.TargetSection) (string, error) {
	projectID := uuid.New().String()
	project := domain.Project{
		ID:        projectID,
		Title:     title,
		CreatedAt: g.now().UTC(),
		Status:    domain.ProjectStatusDraft,
	}

	nodes := make([]graph.TargetNodeRecord, 0, len(sections))
	for i, section := range sections {
		slideIDs := make([]string, 0, len(section.SuggestedSlides))
		for _, s := range section.SuggestedSlides {
			slideIDs = append(slideIDs, s.SlideID)
		}
		nodes = append(nodes, graph.TargetNodeRecord{
			Node: domain.TargetNode{
				ID:           fmt.Sprintf("%s_target_%d", projectID, i),
				Title:        section.Title,
				Rationale:    section.Rationale,
				KeyConcepts:  section.KeyConcepts,
				Status:       domain.TargetStatusSuggestion,
				Order:        i,
				IsUnassigned: section.IsUnassigned,
			},
			SlideIDs: slideIDs,
		})
	}

	if err := g.graph.CreateProject(ctx, project, nodes); err != nil {
		return "", fmt.Errorf("generate: create project: %w", err)
	}
	return projectID, nil
}

// baseConcept strips the importance tag the outline prompt appends, so a
// model echoing "Voltage (Primary)" still matches the source concept.
func baseConcept(name string) string {
	for _, suffix := range []string{" (Primary)", " (Secondary)", " (Mention)"} {
		if strings.HasSuffix(name, suffix) {
			return name[:len(name)-len(suffix)]
		}
	}
	return name
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}
