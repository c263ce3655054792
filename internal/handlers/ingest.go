package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/cnogradi/training-consolidation-workbench/internal/domain"
	"github.com/cnogradi/training-consolidation-workbench/internal/ingest"
	"github.com/cnogradi/training-consolidation-workbench/internal/platform/logger"
)

type IngestHandler struct {
	log        *logger.Logger
	aggregator *ingest.Aggregator
}

func NewIngestHandler(log *logger.Logger, aggregator *ingest.Aggregator) *IngestHandler {
	return &IngestHandler{
		log:        log.With("handler", "IngestHandler"),
		aggregator: aggregator,
	}
}

type ingestElement struct {
	Text       string `json:"text"`
	PageNumber *int   `json:"page_number"`
}

type ingestRequest struct {
	Title          string          `json:"title"`
	BusinessUnit   string          `json:"business_unit"`
	Version        string          `json:"version"`
	DeliveryMethod string          `json:"delivery_method"`
	DurationHours  float64         `json:"duration_hours"`
	Audience       string          `json:"audience"`
	Level          string          `json:"level"`
	Discipline     string          `json:"discipline"`
	Filename       string          `json:"filename"`
	Elements       []ingestElement `json:"elements"`
}

func (h *IngestHandler) IngestCourse(c *gin.Context) {
	courseID := strings.TrimSpace(c.Param("id"))
	if courseID == "" {
		RespondError(c, http.StatusBadRequest, "missing_course_id", nil)
		return
	}

	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if len(req.Elements) == 0 {
		RespondError(c, http.StatusBadRequest, "no_elements", nil)
		return
	}

	elements := make([]domain.TextElement, 0, len(req.Elements))
	for _, el := range req.Elements {
		elements = append(elements, domain.TextElement{Text: el.Text, PageNumber: el.PageNumber})
	}

	artifact := ingest.CourseArtifact{
		Course: domain.Course{
			ID:             courseID,
			Title:          req.Title,
			BusinessUnit:   req.BusinessUnit,
			Version:        req.Version,
			DeliveryMethod: req.DeliveryMethod,
			DurationHours:  req.DurationHours,
			Audience:       req.Audience,
			Level:          req.Level,
			Discipline:     req.Discipline,
		},
		Filename: req.Filename,
		Elements: elements,
	}

	if err := h.aggregator.Run(c.Request.Context(), artifact); err != nil {
		h.log.Error("IngestCourse failed", "error", err, "course_id", courseID)
		RespondError(c, http.StatusInternalServerError, "ingest_failed", err)
		return
	}
	RespondOK(c, gin.H{"course_id": courseID, "status": "ingested"})
}
