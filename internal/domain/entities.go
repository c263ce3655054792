package domain

import (
	"strings"
	"time"
)

// Graph entity types for the consolidation workbench. Identity rules:
// Course/Section/Slide/Project/TargetNode are keyed by id, Concept and
// CanonicalConcept by name (case-sensitive).

type Course struct {
	ID             string
	Title          string
	BusinessUnit   string
	Version        string
	DeliveryMethod string
	DurationHours  float64
	Audience       string
	Level          string
	Discipline     string
}

type Section struct {
	ID             string
	Title          string
	Level          int
	ConceptSummary []string
}

type Slide struct {
	ID        string
	Number    int
	Text      string
	AssetType string
}

type Concept struct {
	Name        string
	Description string
}

// ConceptSalience is one TEACHES edge payload: how strongly a slide teaches
// a concept, in [0,1].
type ConceptSalience struct {
	Name        string
	Description string
	Salience    float64
}

type CanonicalConcept struct {
	Name        string
	Description string
}

// ConceptCluster is one group of synonymous source concepts produced by
// harmonization.
type ConceptCluster struct {
	CanonicalName  string
	Description    string
	SourceConcepts []string
}

type Project struct {
	ID        string
	Title     string
	CreatedAt time.Time
	Status    string
}

type TargetNode struct {
	ID           string
	Title        string
	Rationale    string
	KeyConcepts  []string
	Status       string
	Order        int
	IsUnassigned bool
}

// SlideSuggestion links a generated section to a source slide, with the
// concept that first surfaced it during retrieval.
type SlideSuggestion struct {
	SlideID     string
	TextPreview string
	MatchReason string
}

// TargetSection is a generated curriculum section before persistence.
type TargetSection struct {
	Title           string
	Rationale       string
	KeyConcepts     []string
	Category        string
	SuggestedSlides []SlideSuggestion
	IsUnassigned    bool
}

// TextElement is one raw extracted text fragment from an upstream document
// parser. PageNumber is nil when the parser could not attribute a page.
type TextElement struct {
	Text       string
	PageNumber *int
}

// OutlineNode is one level of an extracted document outline.
type OutlineNode struct {
	Title       string
	Level       int
	Subsections []OutlineNode
}

// WeightedOutline is one source unit's concept list annotated with
// importance tags, e.g. "Voltage (Primary)".
type WeightedOutline struct {
	BusinessUnit string
	SectionTitle string
	Concepts     []string
}

const (
	ProjectStatusDraft     = "draft"
	TargetStatusSuggestion = "suggestion"

	// DefaultSalience is used when the extractor omits a salience score.
	DefaultSalience = 0.5
)

// ClampSalience forces a salience score into [0,1].
func ClampSalience(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

var knownAssetTypes = map[string]bool{
	"PDF":  true,
	"PPTX": true,
	"DOCX": true,
	"PPT":  true,
	"DOC":  true,
}

// AssetTypeFromFilename derives a slide asset type from the source filename
// extension; anything outside the known set maps to "Unknown".
func AssetTypeFromFilename(filename string) string {
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return "Unknown"
	}
	ext := strings.ToUpper(filename[idx+1:])
	if knownAssetTypes[ext] {
		return ext
	}
	return "Unknown"
}
