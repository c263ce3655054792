package harmonize

import (
	"context"
	"errors"
	"fmt"

	"github.com/cnogradi/training-consolidation-workbench/internal/data/graph"
	"github.com/cnogradi/training-consolidation-workbench/internal/domain"
	"github.com/cnogradi/training-consolidation-workbench/internal/platform/ctxutil"
	"github.com/cnogradi/training-consolidation-workbench/internal/platform/logger"
	"github.com/cnogradi/training-consolidation-workbench/internal/prediction"
)

// ErrPartialApply signals that at least one cluster failed to apply while
// the rest went through. The Result still carries what succeeded.
var ErrPartialApply = errors.New("harmonize: some clusters failed to apply")

// Result reports the outcome of a harmonization run.
type Result struct {
	Clusters []domain.ConceptCluster
	Applied  int
	Failed   []string
}

// Harmonizer folds synonymous Concept names into CanonicalConcept nodes.
// Running it twice is a no-op the second time: REFERS_TO edges are merged
// and already-linked concepts produce the same clusters again.
type Harmonizer struct {
	log     *logger.Logger
	graph   graph.Store
	predict prediction.Service
}

func New(log *logger.Logger, store graph.Store, predict prediction.Service) (*Harmonizer, error) {
	if log == nil {
		return nil, fmt.Errorf("harmonize: logger required")
	}
	if store == nil {
		return nil, fmt.Errorf("harmonize: graph store required")
	}
	if predict == nil {
		return nil, fmt.Errorf("harmonize: prediction service required")
	}
	return &Harmonizer{
		log:     log.With("service", "ConceptHarmonizer"),
		graph:   store,
		predict: predict,
	}, nil
}

// Harmonize clusters every distinct concept name in the graph. An empty
// graph yields an empty cluster list; a clustering failure is fatal because
// nothing can be applied without it.
func (h *Harmonizer) Harmonize(ctx context.Context) ([]domain.ConceptCluster, error) {
	ctx = ctxutil.Default(ctx)

	names, err := h.graph.DistinctConceptNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("harmonize: list concepts: %w", err)
	}
	if len(names) == 0 {
		h.log.Info("No concepts to harmonize")
		return nil, nil
	}

	clusters, err := h.predict.ClusterConcepts(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("harmonize: cluster concepts: %w", err)
	}
	h.log.Info("Concepts clustered", "concepts", len(names), "clusters", len(clusters))
	return clusters, nil
}

// ApplyClusters writes each cluster in its own transaction. A failing
// cluster is recorded and the rest still apply; the caller gets a degraded
// result wrapping ErrPartialApply.
func (h *Harmonizer) ApplyClusters(ctx context.Context, clusters []domain.ConceptCluster) (Result, error) {
	ctx = ctxutil.Default(ctx)

	res := Result{Clusters: clusters}
	for _, cluster := range clusters {
		if err := h.graph.ApplyConceptCluster(ctx, cluster); err != nil {
			h.log.Error("Cluster apply failed", "canonical", cluster.CanonicalName, "error", err)
			res.Failed = append(res.Failed, cluster.CanonicalName)
			continue
		}
		res.Applied++
	}

	if len(res.Failed) > 0 {
		return res, fmt.Errorf("%w: %d of %d", ErrPartialApply, len(res.Failed), len(clusters))
	}
	return res, nil
}

// Run performs a full harmonization pass: cluster, then apply.
func (h *Harmonizer) Run(ctx context.Context) (Result, error) {
	clusters, err := h.Harmonize(ctx)
	if err != nil {
		return Result{}, err
	}
	return h.ApplyClusters(ctx, clusters)
}
