package harmonize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/cnogradi/training-consolidation-workbench/internal/data/graph"
	"github.com/cnogradi/training-consolidation-workbench/internal/domain"
	"github.com/cnogradi/training-consolidation-workbench/internal/platform/logger"
)

type fakeStore struct {
	names      []string
	applied    []string
	failFor    map[string]bool
	clusterErr error
}

func (f *fakeStore) DistinctConceptNames(context.Context) ([]string, error) {
	return f.names, nil
}

func (f *fakeStore) ApplyConceptCluster(_ context.Context, cluster domain.ConceptCluster) error {
	if f.failFor[cluster.CanonicalName] {
		return fmt.Errorf("write failed")
	}
	f.applied = append(f.applied, cluster.CanonicalName)
	return f.clusterErr
}

func (f *fakeStore) UpsertCourse(context.Context, domain.Course) error             { return nil }
func (f *fakeStore) UpsertSections(context.Context, []graph.SectionRecord) error   { return nil }
func (f *fakeStore) UpsertSlide(context.Context, string, domain.Slide) error       { return nil }
func (f *fakeStore) UpsertSlideConcepts(context.Context, string, []domain.ConceptSalience) error {
	return nil
}
func (f *fakeStore) SetSectionConceptSummaries(context.Context, map[string][]string) error {
	return nil
}
func (f *fakeStore) CourseTree(context.Context, string) (*graph.CourseTree, error) { return nil, nil }
func (f *fakeStore) ExpandSources(context.Context, []string) ([]graph.SourceUnit, error) {
	return nil, nil
}
func (f *fakeStore) SlidesForCourses(context.Context, []string) ([]graph.SlideRef, error) {
	return nil, nil
}
func (f *fakeStore) MasterOutline(context.Context, string) ([]graph.MasterSection, error) {
	return nil, nil
}
func (f *fakeStore) CreateProject(context.Context, domain.Project, []graph.TargetNodeRecord) error {
	return nil
}

type fakePredict struct {
	clusters     []domain.ConceptCluster
	clusterCalls int
	err          error
}

func (f *fakePredict) ClusterConcepts(_ context.Context, names []string) ([]domain.ConceptCluster, error) {
	f.clusterCalls++
	return f.clusters, f.err
}

func (f *fakePredict) ExtractOutline(context.Context, string) ([]domain.OutlineNode, error) {
	return nil, nil
}
func (f *fakePredict) ExtractConcepts(context.Context, string) ([]domain.ConceptSalience, error) {
	return nil, nil
}
func (f *fakePredict) GenerateSkeleton(context.Context, []domain.WeightedOutline) (json.RawMessage, error) {
	return nil, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestRunEmptyGraph(t *testing.T) {
	store := &fakeStore{}
	predict := &fakePredict{}
	h, err := New(testLogger(t), store, predict)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Clusters) != 0 || res.Applied != 0 {
		t.Fatalf("expected empty result, got %+v", res)
	}
	if predict.clusterCalls != 0 {
		t.Fatalf("clustering must be skipped for an empty graph")
	}
}

func TestRunClusteringFailureIsFatal(t *testing.T) {
	store := &fakeStore{names: []string{"E-Stop", "Emergency Halt"}}
	predict := &fakePredict{err: fmt.Errorf("model unavailable")}
	h, err := New(testLogger(t), store, predict)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := h.Run(context.Background()); err == nil {
		t.Fatalf("expected error when clustering fails")
	}
	if len(store.applied) != 0 {
		t.Fatalf("nothing must be applied after a clustering failure")
	}
}

func TestApplyClustersPartialFailure(t *testing.T) {
	store := &fakeStore{failFor: map[string]bool{"Emergency Stop": true}}
	h, err := New(testLogger(t), store, &fakePredict{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	clusters := []domain.ConceptCluster{
		{CanonicalName: "Voltage", SourceConcepts: []string{"voltage", "Voltage (V)"}},
		{CanonicalName: "Emergency Stop", SourceConcepts: []string{"E-Stop"}},
		{CanonicalName: "Current", SourceConcepts: []string{"current"}},
	}
	res, err := h.ApplyClusters(context.Background(), clusters)
	if !errors.Is(err, ErrPartialApply) {
		t.Fatalf("expected ErrPartialApply, got %v", err)
	}
	if res.Applied != 2 {
		t.Fatalf("expected 2 applied, got %d", res.Applied)
	}
	if len(res.Failed) != 1 || res.Failed[0] != "Emergency Stop" {
		t.Fatalf("unexpected failures: %v", res.Failed)
	}
	// The cluster after the failing one still went through.
	if store.applied[len(store.applied)-1] != "Current" {
		t.Fatalf("later clusters must still apply: %v", store.applied)
	}
}

func TestRunAppliesAllClusters(t *testing.T) {
	store := &fakeStore{names: []string{"E-Stop", "Emergency Halt"}}
	predict := &fakePredict{clusters: []domain.ConceptCluster{
		{CanonicalName: "Emergency Stop", SourceConcepts: []string{"E-Stop", "Emergency Halt"}},
	}}
	h, err := New(testLogger(t), store, predict)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Applied != 1 || len(res.Failed) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
}
