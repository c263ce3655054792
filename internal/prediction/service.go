package prediction

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cnogradi/training-consolidation-workbench/internal/curriculum"
	"github.com/cnogradi/training-consolidation-workbench/internal/domain"
	"github.com/cnogradi/training-consolidation-workbench/internal/platform/envutil"
	"github.com/cnogradi/training-consolidation-workbench/internal/platform/logger"
	"github.com/cnogradi/training-consolidation-workbench/internal/platform/openai"
)

// Service is the language-model boundary: four stateless request/response
// operations. Implementations must not retain state between calls.
type Service interface {
	ExtractOutline(ctx context.Context, documentText string) ([]domain.OutlineNode, error)
	ExtractConcepts(ctx context.Context, slideText string) ([]domain.ConceptSalience, error)
	ClusterConcepts(ctx context.Context, names []string) ([]domain.ConceptCluster, error)

	// GenerateSkeleton returns the raw model JSON. Shape validation
	// (template mapping vs. legacy flat list) is the generator's concern.
	GenerateSkeleton(ctx context.Context, outlines []domain.WeightedOutline) (json.RawMessage, error)
}

type service struct {
	log             *logger.Logger
	ai              openai.Client
	template        curriculum.Template
	outlineMaxChars int
}

func NewService(log *logger.Logger, ai openai.Client, tpl curriculum.Template) (Service, error) {
	if log == nil {
		return nil, fmt.Errorf("prediction: logger required")
	}
	if ai == nil {
		return nil, fmt.Errorf("prediction: openai client required")
	}
	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	return &service{
		log:             log.With("service", "Prediction"),
		ai:              ai,
		template:        tpl,
		outlineMaxChars: envutil.Int("WB_OUTLINE_MAX_CHARS", 20000),
	}, nil
}

// -------------------- extract_outline --------------------

const outlineSystemPrompt = `You are an expert Instructional Designer.
Extract the hierarchical outline of the given training document.
Return only structure that is actually present in the text; do not invent sections.`

func outlineSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"sections": map[string]any{
				"type":  "array",
				"items": map[string]any{"$ref": "#/$defs/section"},
			},
		},
		"required":             []string{"sections"},
		"additionalProperties": false,
		"$defs": map[string]any{
			"section": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"title": map[string]any{"type": "string"},
					"level": map[string]any{"type": "integer"},
					"subsections": map[string]any{
						"type":  "array",
						"items": map[string]any{"$ref": "#/$defs/section"},
					},
				},
				"required":             []string{"title", "level", "subsections"},
				"additionalProperties": false,
			},
		},
	}
}

type outlineNodeJSON struct {
	Title       string            `json:"title"`
	Level       int               `json:"level"`
	Subsections []outlineNodeJSON `json:"subsections"`
}

func toOutlineNodes(in []outlineNodeJSON) []domain.OutlineNode {
	out := make([]domain.OutlineNode, 0, len(in))
	for _, n := range in {
		out = append(out, domain.OutlineNode{
			Title:       n.Title,
			Level:       n.Level,
			Subsections: toOutlineNodes(n.Subsections),
		})
	}
	return out
}

func (s *service) ExtractOutline(ctx context.Context, documentText string) ([]domain.OutlineNode, error) {
	text := documentText
	if len(text) > s.outlineMaxChars {
		text = text[:s.outlineMaxChars]
	}

	obj, err := s.ai.GenerateJSON(ctx, outlineSystemPrompt, text, "document_outline", outlineSchema())
	if err != nil {
		return nil, fmt.Errorf("prediction: extract outline: %w", err)
	}

	var decoded struct {
		Sections []outlineNodeJSON `json:"sections"`
	}
	if err := reparse(obj, &decoded); err != nil {
		return nil, fmt.Errorf("prediction: extract outline: %w", err)
	}
	return toOutlineNodes(decoded.Sections), nil
}

// -------------------- extract_concepts --------------------

const conceptsSystemPrompt = `You are an expert Instructional Designer.
Extract the technical concepts taught on this slide.
For each concept give a short description and a salience score in [0,1]
expressing how strongly the slide teaches it. Use null when you cannot judge
salience. Do not invent concepts that are not on the slide.`

func conceptsSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"concepts": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":        map[string]any{"type": "string"},
						"description": map[string]any{"type": "string"},
						"salience":    map[string]any{"type": []string{"number", "null"}},
					},
					"required":             []string{"name", "description", "salience"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"concepts"},
		"additionalProperties": false,
	}
}

func (s *service) ExtractConcepts(ctx context.Context, slideText string) ([]domain.ConceptSalience, error) {
	obj, err := s.ai.GenerateJSON(ctx, conceptsSystemPrompt, slideText, "slide_concepts", conceptsSchema())
	if err != nil {
		return nil, fmt.Errorf("prediction: extract concepts: %w", err)
	}

	var decoded struct {
		Concepts []struct {
			Name        string   `json:"name"`
			Description string   `json:"description"`
			Salience    *float64 `json:"salience"`
		} `json:"concepts"`
	}
	if err := reparse(obj, &decoded); err != nil {
		return nil, fmt.Errorf("prediction: extract concepts: %w", err)
	}

	out := make([]domain.ConceptSalience, 0, len(decoded.Concepts))
	for _, c := range decoded.Concepts {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			continue
		}
		salience := domain.DefaultSalience
		if c.Salience != nil {
			salience = domain.ClampSalience(*c.Salience)
		}
		out = append(out, domain.ConceptSalience{
			Name:        name,
			Description: c.Description,
			Salience:    salience,
		})
	}
	return out, nil
}

// -------------------- cluster_concepts --------------------

const clusterSystemPrompt = `Analyze a list of technical concepts and group them into semantic clusters.
Identify synonyms, acronyms, and variations (e.g. 'E-Stop' and 'Emergency Halt').
Every cluster needs a standardized canonical name, a consolidated description,
and the list of original concept names it subsumes. Only use names from the input.`

func clusterSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"clusters": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"canonical_name": map[string]any{"type": "string"},
						"description":    map[string]any{"type": "string"},
						"source_concepts": map[string]any{
							"type":  "array",
							"items": map[string]any{"type": "string"},
						},
					},
					"required":             []string{"canonical_name", "description", "source_concepts"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []string{"clusters"},
		"additionalProperties": false,
	}
}

func (s *service) ClusterConcepts(ctx context.Context, names []string) ([]domain.ConceptCluster, error) {
	if len(names) == 0 {
		return nil, nil
	}

	payload, err := json.Marshal(map[string]any{"concepts": names})
	if err != nil {
		return nil, fmt.Errorf("prediction: encode concept names: %w", err)
	}

	obj, err := s.ai.GenerateJSON(ctx, clusterSystemPrompt, string(payload), "concept_clusters", clusterSchema())
	if err != nil {
		return nil, fmt.Errorf("prediction: cluster concepts: %w", err)
	}

	var decoded struct {
		Clusters []struct {
			CanonicalName  string   `json:"canonical_name"`
			Description    string   `json:"description"`
			SourceConcepts []string `json:"source_concepts"`
		} `json:"clusters"`
	}
	if err := reparse(obj, &decoded); err != nil {
		return nil, fmt.Errorf("prediction: cluster concepts: %w", err)
	}

	out := make([]domain.ConceptCluster, 0, len(decoded.Clusters))
	for _, c := range decoded.Clusters {
		name := strings.TrimSpace(c.CanonicalName)
		if name == "" {
			continue
		}
		out = append(out, domain.ConceptCluster{
			CanonicalName:  name,
			Description:    c.Description,
			SourceConcepts: c.SourceConcepts,
		})
	}
	return out, nil
}

// -------------------- generate_skeleton --------------------

func sectionObjectSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":     map[string]any{"type": "string"},
			"rationale": map[string]any{"type": "string"},
			"key_concepts": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
		"required":             []string{"title", "rationale", "key_concepts"},
		"additionalProperties": false,
	}
}

func (s *service) skeletonSchema() map[string]any {
	props := map[string]any{}
	required := make([]string, 0, len(s.template.Modules))
	for _, m := range s.template.Modules {
		if m.IsList {
			props[m.Key] = map[string]any{
				"type":  "array",
				"items": sectionObjectSchema(),
			}
		} else {
			props[m.Key] = sectionObjectSchema()
		}
		required = append(required, m.Key)
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

// skeletonSystemPrompt builds the generation instructions from the template,
// the way the source curriculum template drives the prompt.
func (s *service) skeletonSystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are an expert Instructional Designer for Engineering.\n")
	b.WriteString("Given outlines from multiple business units, create a Unified Standard Course.\n\n")
	b.WriteString("You MUST follow this template:\n")
	for i, m := range s.template.Modules {
		fmt.Fprintf(&b, "%d. %s\n", i+1, m.DisplayName())
	}
	b.WriteString(`
CRITICAL INSTRUCTIONS FOR MISSING CONTENT:
1. You MUST include ALL standard modules even if source material is missing.
2. If source material does NOT contain concepts relevant to a module:
   - Create the module in the JSON.
   - Set 'key_concepts' to an EMPTY LIST.
   - Set 'rationale' to "NO_SOURCE_DATA".
3. DO NOT invent or hallucinate concepts. Only use concepts derived from input.
4. For list modules, create MULTIPLE sections by merging and de-duplicating source topics into a logical flow (Fundamentals -> Advanced).
`)
	return b.String()
}

func (s *service) GenerateSkeleton(ctx context.Context, outlines []domain.WeightedOutline) (json.RawMessage, error) {
	type outlineJSON struct {
		BU           string   `json:"bu"`
		SectionTitle string   `json:"section_title"`
		Concepts     []string `json:"concepts"`
	}
	payload := make([]outlineJSON, 0, len(outlines))
	for _, o := range outlines {
		payload = append(payload, outlineJSON{
			BU:           o.BusinessUnit,
			SectionTitle: o.SectionTitle,
			Concepts:     o.Concepts,
		})
	}
	user, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("prediction: encode outlines: %w", err)
	}

	obj, err := s.ai.GenerateJSON(ctx, s.skeletonSystemPrompt(), string(user), "consolidated_plan", s.skeletonSchema())
	if err != nil {
		return nil, fmt.Errorf("prediction: generate skeleton: %w", err)
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("prediction: encode skeleton: %w", err)
	}
	return raw, nil
}

func reparse(obj map[string]any, out any) error {
	raw, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
