package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cnogradi/training-consolidation-workbench/internal/domain"
	"github.com/cnogradi/training-consolidation-workbench/internal/generate"
	"github.com/cnogradi/training-consolidation-workbench/internal/platform/logger"
)

type GenerateHandler struct {
	log       *logger.Logger
	generator *generate.Generator
}

func NewGenerateHandler(log *logger.Logger, generator *generate.Generator) *GenerateHandler {
	return &GenerateHandler{
		log:       log.With("handler", "GenerateHandler"),
		generator: generator,
	}
}

type generateRequest struct {
	SourceIDs      []string `json:"source_ids"`
	Title          string   `json:"title"`
	MasterCourseID string   `json:"master_course_id"`
}

type suggestionJSON struct {
	SlideID     string `json:"slide_id"`
	TextPreview string `json:"text_preview"`
	MatchReason string `json:"match_reason"`
}

type sectionJSON struct {
	Title           string           `json:"title"`
	Rationale       string           `json:"rationale"`
	KeyConcepts     []string         `json:"key_concepts"`
	Category        string           `json:"category"`
	SuggestedSlides []suggestionJSON `json:"suggested_slides"`
	IsUnassigned    bool             `json:"is_unassigned"`
}

func toSectionJSON(sections []domain.TargetSection) []sectionJSON {
	out := make([]sectionJSON, 0, len(sections))
	for _, s := range sections {
		slides := make([]suggestionJSON, 0, len(s.SuggestedSlides))
		for _, sg := range s.SuggestedSlides {
			slides = append(slides, suggestionJSON{
				SlideID:     sg.SlideID,
				TextPreview: sg.TextPreview,
				MatchReason: sg.MatchReason,
			})
		}
		out = append(out, sectionJSON{
			Title:           s.Title,
			Rationale:       s.Rationale,
			KeyConcepts:     s.KeyConcepts,
			Category:        s.Category,
			SuggestedSlides: slides,
			IsUnassigned:    s.IsUnassigned,
		})
	}
	return out
}

func (h *GenerateHandler) GenerateProject(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if len(req.SourceIDs) == 0 {
		RespondError(c, http.StatusBadRequest, "no_source_ids", nil)
		return
	}

	res, err := h.generator.Generate(c.Request.Context(), generate.Request{
		SourceIDs:      req.SourceIDs,
		Title:          req.Title,
		MasterCourseID: req.MasterCourseID,
	})
	if err != nil {
		if errors.Is(err, generate.ErrNoSourceData) {
			RespondError(c, http.StatusNotFound, "no_source_data", err)
			return
		}
		h.log.Error("GenerateProject failed", "error", err, "source_ids", req.SourceIDs)
		RespondError(c, http.StatusInternalServerError, "generate_failed", err)
		return
	}

	RespondOK(c, gin.H{
		"project_id": res.ProjectID,
		"title":      res.Title,
		"sections":   toSectionJSON(res.Sections),
	})
}
