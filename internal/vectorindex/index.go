package vectorindex

import (
	"context"
	"fmt"
	"strings"

	"github.com/cnogradi/training-consolidation-workbench/internal/platform/logger"
	"github.com/cnogradi/training-consolidation-workbench/internal/platform/openai"
	"github.com/cnogradi/training-consolidation-workbench/internal/platform/qdrant"
)

const slideNamespace = "slide_text"

// Hit is one similarity-ranked slide returned from a query.
type Hit struct {
	SlideID string
	Text    string
	Score   float64
}

// Index is semantic nearest-neighbor lookup over indexed slide text,
// filterable by course id.
type Index interface {
	UpsertSlide(ctx context.Context, slideID, courseID, text string) error
	Query(ctx context.Context, concepts []string, minSimilarity float64, courseIDs []string, limit int) ([]Hit, error)
}

// qdrantIndex embeds slide text with OpenAI and stores/queries the vectors
// in Qdrant.
type qdrantIndex struct {
	log   *logger.Logger
	ai    openai.Client
	store *qdrant.Store
}

func New(log *logger.Logger, ai openai.Client, store *qdrant.Store) (Index, error) {
	if log == nil {
		return nil, fmt.Errorf("vectorindex: logger required")
	}
	if ai == nil {
		return nil, fmt.Errorf("vectorindex: openai client required")
	}
	if store == nil {
		return nil, fmt.Errorf("vectorindex: qdrant store required")
	}
	return &qdrantIndex{
		log:   log.With("service", "SlideVectorIndex"),
		ai:    ai,
		store: store,
	}, nil
}

func (i *qdrantIndex) UpsertSlide(ctx context.Context, slideID, courseID, text string) error {
	slideID = strings.TrimSpace(slideID)
	if slideID == "" {
		return fmt.Errorf("vectorindex: slide id required")
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("vectorindex: slide text required")
	}

	vectors, err := i.ai.Embed(ctx, []string{text})
	if err != nil {
		return fmt.Errorf("vectorindex: embed slide %s: %w", slideID, err)
	}
	if len(vectors) != 1 {
		return fmt.Errorf("vectorindex: embed slide %s: expected 1 vector, got %d", slideID, len(vectors))
	}

	return i.store.Upsert(ctx, slideNamespace, []qdrant.Point{{
		ID:       slideID,
		Values:   vectors[0],
		CourseID: courseID,
		Text:     text,
	}})
}

func (i *qdrantIndex) Query(ctx context.Context, concepts []string, minSimilarity float64, courseIDs []string, limit int) ([]Hit, error) {
	query := strings.TrimSpace(strings.Join(concepts, " "))
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	vectors, err := i.ai.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("vectorindex: embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("vectorindex: embed query: expected 1 vector, got %d", len(vectors))
	}

	matches, err := i.store.Query(ctx, slideNamespace, vectors[0], limit, minSimilarity, courseIDs)
	if err != nil {
		return nil, err
	}

	out := make([]Hit, 0, len(matches))
	for _, m := range matches {
		out = append(out, Hit{
			SlideID: m.ID,
			Text:    m.Text,
			Score:   m.Score,
		})
	}
	return out, nil
}
