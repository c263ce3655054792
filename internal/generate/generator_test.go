package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cnogradi/training-consolidation-workbench/internal/curriculum"
	"github.com/cnogradi/training-consolidation-workbench/internal/data/graph"
	"github.com/cnogradi/training-consolidation-workbench/internal/domain"
	"github.com/cnogradi/training-consolidation-workbench/internal/platform/logger"
	"github.com/cnogradi/training-consolidation-workbench/internal/vectorindex"
)

type fakeStore struct {
	units      []graph.SourceUnit
	slides     []graph.SlideRef
	master     []graph.MasterSection
	project    *domain.Project
	nodes      []graph.TargetNodeRecord
	projectErr error
}

func newFakeStore() *fakeStore { return &fakeStore{} }

func (f *fakeStore) ExpandSources(context.Context, []string) ([]graph.SourceUnit, error) {
	return f.units, nil
}

func (f *fakeStore) SlidesForCourses(context.Context, []string) ([]graph.SlideRef, error) {
	return f.slides, nil
}

func (f *fakeStore) MasterOutline(context.Context, string) ([]graph.MasterSection, error) {
	return f.master, nil
}

func (f *fakeStore) CreateProject(_ context.Context, project domain.Project, nodes []graph.TargetNodeRecord) error {
	if f.projectErr != nil {
		return f.projectErr
	}
	f.project = &project
	f.nodes = nodes
	return nil
}

func (f *fakeStore) UpsertCourse(context.Context, domain.Course) error           { return nil }
func (f *fakeStore) UpsertSections(context.Context, []graph.SectionRecord) error { return nil }
func (f *fakeStore) UpsertSlide(context.Context, string, domain.Slide) error     { return nil }
func (f *fakeStore) UpsertSlideConcepts(context.Context, string, []domain.ConceptSalience) error {
	return nil
}
func (f *fakeStore) SetSectionConceptSummaries(context.Context, map[string][]string) error {
	return nil
}
func (f *fakeStore) CourseTree(context.Context, string) (*graph.CourseTree, error) { return nil, nil }
func (f *fakeStore) DistinctConceptNames(context.Context) ([]string, error)        { return nil, nil }
func (f *fakeStore) ApplyConceptCluster(context.Context, domain.ConceptCluster) error {
	return nil
}

type fakePredict struct {
	skeleton      json.RawMessage
	skeletonErr   error
	skeletonCalls int
	gotOutlines   []domain.WeightedOutline
}

func (f *fakePredict) GenerateSkeleton(_ context.Context, outlines []domain.WeightedOutline) (json.RawMessage, error) {
	f.skeletonCalls++
	f.gotOutlines = outlines
	return f.skeleton, f.skeletonErr
}

func (f *fakePredict) ExtractOutline(context.Context, string) ([]domain.OutlineNode, error) {
	return nil, nil
}
func (f *fakePredict) ExtractConcepts(context.Context, string) ([]domain.ConceptSalience, error) {
	return nil, nil
}
func (f *fakePredict) ClusterConcepts(context.Context, []string) ([]domain.ConceptCluster, error) {
	return nil, nil
}

type fakeIndex struct {
	hits    map[string][]vectorindex.Hit
	errFor  map[string]bool
	queries []string
}

func (f *fakeIndex) UpsertSlide(context.Context, string, string, string) error { return nil }

func (f *fakeIndex) Query(_ context.Context, concepts []string, _ float64, _ []string, limit int) ([]vectorindex.Hit, error) {
	key := strings.Join(concepts, " ")
	f.queries = append(f.queries, key)
	if f.errFor[key] {
		return nil, fmt.Errorf("query failed")
	}
	hits := f.hits[key]
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func testConfig() Config {
	return Config{
		PrimaryThreshold:   0.8,
		SecondaryThreshold: 0.5,
		TopConcepts:        15,
		FallbackConcepts:   5,
		MinSimilarity:      0.65,
		PerConceptHits:     2,
		MaxSlides:          6,
		RetrievalConcepts:  5,
		PreviewChars:       100,
	}
}

func newGenerator(t *testing.T, store *fakeStore, predict *fakePredict, index vectorindex.Index, cfg Config) *Generator {
	t.Helper()
	g, err := New(testLogger(t), store, predict, index, curriculum.Default(), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return g
}

func flatSkeleton(t *testing.T, sections []sectionJSON) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(sections)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func TestGenerateNoSourceData(t *testing.T) {
	g := newGenerator(t, newFakeStore(), &fakePredict{}, nil, testConfig())
	_, err := g.Generate(context.Background(), Request{SourceIDs: []string{"missing"}})
	if !errors.Is(err, ErrNoSourceData) {
		t.Fatalf("expected ErrNoSourceData, got %v", err)
	}
}

func TestFetchOutlinesTagsAndRanks(t *testing.T) {
	store := newFakeStore()
	store.units = []graph.SourceUnit{{
		ID:           "c1_s0",
		Title:        "Electrical Basics",
		BusinessUnit: "Plant A",
		CourseID:     "c1",
		Concepts: []graph.ConceptWeight{
			{Name: "Resistance", MaxSalience: 0.5},
			{Name: "Voltage", MaxSalience: 0.9},
			{Name: "Trivia", MaxSalience: 0.1},
		},
	}}
	predict := &fakePredict{skeleton: flatSkeleton(t, nil)}
	g := newGenerator(t, store, predict, nil, testConfig())

	if _, err := g.Generate(context.Background(), Request{SourceIDs: []string{"c1"}}); err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(predict.gotOutlines) != 1 {
		t.Fatalf("expected 1 outline, got %d", len(predict.gotOutlines))
	}
	got := predict.gotOutlines[0].Concepts
	want := []string{"Voltage (Primary)", "Resistance (Secondary)", "Trivia (Mention)"}
	if len(got) != len(want) {
		t.Fatalf("concepts = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("concept %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestFetchOutlinesTopConceptLimit(t *testing.T) {
	store := newFakeStore()
	unit := graph.SourceUnit{ID: "c1", Title: "Big", BusinessUnit: "A", CourseID: "c1"}
	for i := 0; i < 20; i++ {
		unit.Concepts = append(unit.Concepts, graph.ConceptWeight{
			Name:        fmt.Sprintf("Concept%02d", i),
			MaxSalience: float64(i) / 20,
		})
	}
	store.units = []graph.SourceUnit{unit}
	predict := &fakePredict{skeleton: flatSkeleton(t, nil)}
	cfg := testConfig()
	cfg.TopConcepts = 15
	g := newGenerator(t, store, predict, nil, cfg)

	if _, err := g.Generate(context.Background(), Request{SourceIDs: []string{"c1"}}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(predict.gotOutlines[0].Concepts) != 15 {
		t.Fatalf("expected 15 tagged concepts, got %d", len(predict.gotOutlines[0].Concepts))
	}
}

func TestGenerateGapSection(t *testing.T) {
	store := newFakeStore()
	store.units = []graph.SourceUnit{{
		ID: "c1", Title: "Basics", BusinessUnit: "A", CourseID: "c1",
		Concepts: []graph.ConceptWeight{{Name: "Voltage", MaxSalience: 0.9}},
	}}
	predict := &fakePredict{skeleton: flatSkeleton(t, []sectionJSON{
		{Title: "Hydraulics", Rationale: "Required module", KeyConcepts: []string{"Pascal's Law"}},
	})}
	index := &fakeIndex{}
	g := newGenerator(t, store, predict, index, testConfig())

	res, err := g.Generate(context.Background(), Request{SourceIDs: []string{"c1"}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	section := res.Sections[0]
	if !strings.HasSuffix(section.Rationale, gapRationaleSuffix) {
		t.Fatalf("gap section missing rationale suffix: %q", section.Rationale)
	}
	if len(section.SuggestedSlides) != 0 {
		t.Fatalf("gap section must have no suggestions")
	}
	if len(index.queries) != 0 {
		t.Fatalf("retrieval must be skipped for gap sections: %v", index.queries)
	}
}

func TestGenerateRetrievalDedupeAndCap(t *testing.T) {
	store := newFakeStore()
	store.units = []graph.SourceUnit{{
		ID: "c1", Title: "Basics", BusinessUnit: "A", CourseID: "c1",
		Concepts: []graph.ConceptWeight{
			{Name: "Voltage", MaxSalience: 0.9},
			{Name: "Current", MaxSalience: 0.9},
		},
	}}
	predict := &fakePredict{skeleton: flatSkeleton(t, []sectionJSON{
		{Title: "Electricity", Rationale: "r", KeyConcepts: []string{"Voltage", "Current"}},
	})}
	index := &fakeIndex{hits: map[string][]vectorindex.Hit{
		"Voltage": {
			{SlideID: "c1_p1", Text: "slide one", Score: 0.9},
			{SlideID: "c1_p2", Text: "slide two", Score: 0.8},
		},
		"Current": {
			{SlideID: "c1_p1", Text: "slide one", Score: 0.85},
			{SlideID: "c1_p3", Text: "slide three", Score: 0.7},
		},
	}}
	g := newGenerator(t, store, predict, index, testConfig())

	res, err := g.Generate(context.Background(), Request{SourceIDs: []string{"c1"}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	slides := res.Sections[0].SuggestedSlides
	if len(slides) != 3 {
		t.Fatalf("expected 3 deduped suggestions, got %d", len(slides))
	}
	// c1_p1 surfaced by Voltage first; Current must not reclaim it.
	if slides[0].SlideID != "c1_p1" || slides[0].MatchReason != "Voltage" {
		t.Fatalf("first-concept-wins violated: %+v", slides[0])
	}
	if slides[2].SlideID != "c1_p3" || slides[2].MatchReason != "Current" {
		t.Fatalf("unexpected third suggestion: %+v", slides[2])
	}
}

func TestGenerateRetrievalLimits(t *testing.T) {
	store := newFakeStore()
	store.units = []graph.SourceUnit{{
		ID: "c1", Title: "Basics", BusinessUnit: "A", CourseID: "c1",
		Concepts: []graph.ConceptWeight{{Name: "C0", MaxSalience: 0.9}},
	}}
	keyConcepts := make([]string, 8)
	hits := make(map[string][]vectorindex.Hit)
	for i := range keyConcepts {
		name := fmt.Sprintf("C%d", i)
		keyConcepts[i] = name
		hits[name] = []vectorindex.Hit{
			{SlideID: fmt.Sprintf("s%d_a", i), Score: 0.9},
			{SlideID: fmt.Sprintf("s%d_b", i), Score: 0.8},
		}
	}
	predict := &fakePredict{skeleton: flatSkeleton(t, []sectionJSON{
		{Title: "Wide", Rationale: "r", KeyConcepts: keyConcepts},
	})}
	index := &fakeIndex{hits: hits}
	g := newGenerator(t, store, predict, index, testConfig())

	res, err := g.Generate(context.Background(), Request{SourceIDs: []string{"c1"}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if got := len(res.Sections[0].SuggestedSlides); got != 6 {
		t.Fatalf("suggestions must cap at 6, got %d", got)
	}
	// Only the first 5 concepts may issue queries, and the cap stops the rest.
	if len(index.queries) > 5 {
		t.Fatalf("too many retrieval queries: %v", index.queries)
	}
}

func TestGenerateRetrievalFailureTolerated(t *testing.T) {
	store := newFakeStore()
	store.units = []graph.SourceUnit{{
		ID: "c1", Title: "Basics", BusinessUnit: "A", CourseID: "c1",
		Concepts: []graph.ConceptWeight{
			{Name: "Voltage", MaxSalience: 0.9},
			{Name: "Current", MaxSalience: 0.9},
		},
	}}
	predict := &fakePredict{skeleton: flatSkeleton(t, []sectionJSON{
		{Title: "Electricity", Rationale: "r", KeyConcepts: []string{"Voltage", "Current"}},
	})}
	index := &fakeIndex{
		errFor: map[string]bool{"Voltage": true},
		hits: map[string][]vectorindex.Hit{
			"Current": {{SlideID: "c1_p3", Score: 0.7}},
		},
	}
	g := newGenerator(t, store, predict, index, testConfig())

	res, err := g.Generate(context.Background(), Request{SourceIDs: []string{"c1"}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	slides := res.Sections[0].SuggestedSlides
	if len(slides) != 1 || slides[0].SlideID != "c1_p3" {
		t.Fatalf("later concepts must still retrieve: %+v", slides)
	}
}

func TestGenerateUnassignedSectionLast(t *testing.T) {
	store := newFakeStore()
	store.units = []graph.SourceUnit{{
		ID: "c1", Title: "Basics", BusinessUnit: "A", CourseID: "c1",
		Concepts: []graph.ConceptWeight{{Name: "Voltage", MaxSalience: 0.9}},
	}}
	store.slides = []graph.SlideRef{
		{ID: "c1_p2", Text: "orphan two"},
		{ID: "c1_p1", Text: "used one"},
		{ID: "c1_p3", Text: "orphan three"},
	}
	predict := &fakePredict{skeleton: flatSkeleton(t, []sectionJSON{
		{Title: "Electricity", Rationale: "r", KeyConcepts: []string{"Voltage"}},
	})}
	index := &fakeIndex{hits: map[string][]vectorindex.Hit{
		"Voltage": {{SlideID: "c1_p1", Text: "used one", Score: 0.9}},
	}}
	g := newGenerator(t, store, predict, index, testConfig())

	res, err := g.Generate(context.Background(), Request{SourceIDs: []string{"c1"}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	last := res.Sections[len(res.Sections)-1]
	if !last.IsUnassigned || last.Title != unassignedTitle {
		t.Fatalf("last section must be the unassigned bucket: %+v", last)
	}
	if len(last.SuggestedSlides) != 2 {
		t.Fatalf("expected 2 unassigned slides, got %d", len(last.SuggestedSlides))
	}
	if last.SuggestedSlides[0].SlideID != "c1_p2" || last.SuggestedSlides[1].SlideID != "c1_p3" {
		t.Fatalf("unassigned slides not sorted: %+v", last.SuggestedSlides)
	}
}

func TestGenerateNoUnassignedWhenAllUsed(t *testing.T) {
	store := newFakeStore()
	store.units = []graph.SourceUnit{{
		ID: "c1", Title: "Basics", BusinessUnit: "A", CourseID: "c1",
		Concepts: []graph.ConceptWeight{{Name: "Voltage", MaxSalience: 0.9}},
	}}
	store.slides = []graph.SlideRef{{ID: "c1_p1", Text: "used"}}
	predict := &fakePredict{skeleton: flatSkeleton(t, []sectionJSON{
		{Title: "Electricity", Rationale: "r", KeyConcepts: []string{"Voltage"}},
	})}
	index := &fakeIndex{hits: map[string][]vectorindex.Hit{
		"Voltage": {{SlideID: "c1_p1", Score: 0.9}},
	}}
	g := newGenerator(t, store, predict, index, testConfig())

	res, err := g.Generate(context.Background(), Request{SourceIDs: []string{"c1"}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, s := range res.Sections {
		if s.IsUnassigned {
			t.Fatalf("no unassigned section expected: %+v", s)
		}
	}
}

func TestParseSkeletonTemplatedOrder(t *testing.T) {
	store := newFakeStore()
	store.units = []graph.SourceUnit{{
		ID: "c1", Title: "Basics", BusinessUnit: "A", CourseID: "c1",
		Concepts: []graph.ConceptWeight{{Name: "Voltage", MaxSalience: 0.9}},
	}}
	// Keys deliberately out of template order; knowledge_assessment omitted.
	skeleton := json.RawMessage(`{
		"technical_modules": [
			{"title": "Electrical Fundamentals", "rationale": "merged", "key_concepts": ["Voltage"]},
			{"title": "Advanced Circuits", "rationale": "merged", "key_concepts": ["Voltage"]}
		],
		"course_introduction": {"title": "Welcome", "rationale": "intro", "key_concepts": []},
		"safety_essentials": {"title": "Stay Safe", "rationale": "safety", "key_concepts": ["Voltage"]},
		"applied_practice": {"title": "Lab", "rationale": "practice", "key_concepts": ["Voltage"]}
	}`)
	predict := &fakePredict{skeleton: skeleton}
	g := newGenerator(t, store, predict, nil, testConfig())

	res, err := g.Generate(context.Background(), Request{SourceIDs: []string{"c1"}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	titles := make([]string, 0, len(res.Sections))
	categories := make([]string, 0, len(res.Sections))
	for _, s := range res.Sections {
		titles = append(titles, s.Title)
		categories = append(categories, s.Category)
	}
	wantTitles := []string{"Welcome", "Stay Safe", "Electrical Fundamentals", "Advanced Circuits", "Lab"}
	wantCats := []string{"orientation", "safety", "technical", "technical", "practice"}
	if len(titles) != len(wantTitles) {
		t.Fatalf("sections = %v", titles)
	}
	for i := range wantTitles {
		if titles[i] != wantTitles[i] {
			t.Fatalf("section %d = %q, want %q", i, titles[i], wantTitles[i])
		}
		if categories[i] != wantCats[i] {
			t.Fatalf("category %d = %q, want %q", i, categories[i], wantCats[i])
		}
	}
}

func TestParseSkeletonMalformedFallsBack(t *testing.T) {
	store := newFakeStore()
	store.units = []graph.SourceUnit{
		{
			ID: "c1_s0", Title: "Electrical Basics", BusinessUnit: "Plant A", CourseID: "c1",
			Concepts: []graph.ConceptWeight{
				{Name: "Voltage", MaxSalience: 0.9},
				{Name: "Current", MaxSalience: 0.8},
			},
		},
		{
			ID: "c2_s0", Title: "Hydraulics", BusinessUnit: "Plant B", CourseID: "c2",
			Concepts: []graph.ConceptWeight{{Name: "Pressure", MaxSalience: 0.7}},
		},
	}
	predict := &fakePredict{skeleton: json.RawMessage(`{"technical_modules": 42}`)}
	g := newGenerator(t, store, predict, nil, testConfig())

	res, err := g.Generate(context.Background(), Request{SourceIDs: []string{"c1", "c2"}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if len(res.Sections) != 2 {
		t.Fatalf("fallback must mirror the sources: %d sections", len(res.Sections))
	}
	first := res.Sections[0]
	if first.Title != "Electrical Basics" {
		t.Fatalf("fallback title = %q", first.Title)
	}
	if !strings.Contains(first.Rationale, "Plant A") {
		t.Fatalf("fallback rationale = %q", first.Rationale)
	}
	if len(first.KeyConcepts) != 2 || first.KeyConcepts[0] != "Voltage" {
		t.Fatalf("fallback concepts = %v", first.KeyConcepts)
	}
}

func TestParseSkeletonUnrecognizedFallsBack(t *testing.T) {
	store := newFakeStore()
	store.units = []graph.SourceUnit{{
		ID: "c1", Title: "Basics", BusinessUnit: "A", CourseID: "c1",
		Concepts: []graph.ConceptWeight{{Name: "Voltage", MaxSalience: 0.9}},
	}}
	predict := &fakePredict{skeleton: json.RawMessage(`"just a string"`)}
	g := newGenerator(t, store, predict, nil, testConfig())

	res, err := g.Generate(context.Background(), Request{SourceIDs: []string{"c1"}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Sections) != 1 || res.Sections[0].Title != "Basics" {
		t.Fatalf("unexpected fallback sections: %+v", res.Sections)
	}
}

func TestGeneratePersistsOrderedNodes(t *testing.T) {
	store := newFakeStore()
	store.units = []graph.SourceUnit{{
		ID: "c1", Title: "Basics", BusinessUnit: "A", CourseID: "c1",
		Concepts: []graph.ConceptWeight{{Name: "Voltage", MaxSalience: 0.9}},
	}}
	store.slides = []graph.SlideRef{{ID: "c1_p9", Text: "orphan"}}
	predict := &fakePredict{skeleton: flatSkeleton(t, []sectionJSON{
		{Title: "One", Rationale: "r", KeyConcepts: []string{"Voltage"}},
		{Title: "Two", Rationale: "r", KeyConcepts: []string{"Voltage"}},
	})}
	g := newGenerator(t, store, predict, nil, testConfig())

	res, err := g.Generate(context.Background(), Request{SourceIDs: []string{"c1"}, Title: "Unified"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if store.project == nil {
		t.Fatalf("project not created")
	}
	if store.project.Status != domain.ProjectStatusDraft {
		t.Fatalf("project status = %q", store.project.Status)
	}
	if store.project.Title != "Unified" {
		t.Fatalf("project title = %q", store.project.Title)
	}

	// Two sections plus the unassigned bucket, in order.
	if len(store.nodes) != 3 {
		t.Fatalf("expected 3 target nodes, got %d", len(store.nodes))
	}
	for i, n := range store.nodes {
		wantID := fmt.Sprintf("%s_target_%d", res.ProjectID, i)
		if n.Node.ID != wantID {
			t.Fatalf("node %d id = %q, want %q", i, n.Node.ID, wantID)
		}
		if n.Node.Order != i {
			t.Fatalf("node %d order = %d", i, n.Node.Order)
		}
		if n.Node.Status != domain.TargetStatusSuggestion {
			t.Fatalf("node %d status = %q", i, n.Node.Status)
		}
	}
	if !store.nodes[2].Node.IsUnassigned {
		t.Fatalf("last node must be unassigned bucket")
	}
}

func TestGeneratePersistFailureIsFatal(t *testing.T) {
	store := newFakeStore()
	store.projectErr = fmt.Errorf("write failed")
	store.units = []graph.SourceUnit{{
		ID: "c1", Title: "Basics", BusinessUnit: "A", CourseID: "c1",
		Concepts: []graph.ConceptWeight{{Name: "Voltage", MaxSalience: 0.9}},
	}}
	predict := &fakePredict{skeleton: flatSkeleton(t, []sectionJSON{
		{Title: "One", Rationale: "r", KeyConcepts: []string{"Voltage"}},
		{Title: "Two", Rationale: "r", KeyConcepts: []string{"Voltage"}},
	})}
	g := newGenerator(t, store, predict, nil, testConfig())

	if _, err := g.Generate(context.Background(), Request{SourceIDs: []string{"c1"}}); err == nil {
		t.Fatalf("expected persistence failure to surface")
	}
}

func TestGenerateMasterOutlineMode(t *testing.T) {
	store := newFakeStore()
	store.units = []graph.SourceUnit{{
		ID: "c1", Title: "Basics", BusinessUnit: "A", CourseID: "c1",
		Concepts: []graph.ConceptWeight{{Name: "Voltage", MaxSalience: 0.9}},
	}}
	store.master = []graph.MasterSection{
		{ID: "m_s0", Title: "Orientation", Level: 1, Concepts: []string{"Voltage"}},
		{ID: "m_s1", Title: "Deep Dive", Level: 1, Concepts: []string{"Voltage"}},
	}
	predict := &fakePredict{}
	g := newGenerator(t, store, predict, nil, testConfig())

	res, err := g.Generate(context.Background(), Request{
		SourceIDs:      []string{"c1"},
		MasterCourseID: "m",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if predict.skeletonCalls != 0 {
		t.Fatalf("master mode must not call the model for a skeleton")
	}
	if len(res.Sections) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(res.Sections))
	}
	if res.Sections[0].Title != "Orientation" {
		t.Fatalf("master section title = %q", res.Sections[0].Title)
	}
}

func TestBaseConceptStripsTag(t *testing.T) {
	cases := map[string]string{
		"Voltage (Primary)":   "Voltage",
		"Voltage (Secondary)": "Voltage",
		"Voltage (Mention)":   "Voltage",
		"Voltage":             "Voltage",
		"Primary (V)":         "Primary (V)",
	}
	for in, want := range cases {
		if got := baseConcept(in); got != want {
			t.Fatalf("baseConcept(%q) = %q, want %q", in, got, want)
		}
	}
}
