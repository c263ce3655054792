package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cnogradi/training-consolidation-workbench/internal/harmonize"
	"github.com/cnogradi/training-consolidation-workbench/internal/platform/logger"
)

type HarmonizeHandler struct {
	log        *logger.Logger
	harmonizer *harmonize.Harmonizer
}

func NewHarmonizeHandler(log *logger.Logger, harmonizer *harmonize.Harmonizer) *HarmonizeHandler {
	return &HarmonizeHandler{
		log:        log.With("handler", "HarmonizeHandler"),
		harmonizer: harmonizer,
	}
}

func (h *HarmonizeHandler) Harmonize(c *gin.Context) {
	res, err := h.harmonizer.Run(c.Request.Context())
	if err != nil && !errors.Is(err, harmonize.ErrPartialApply) {
		h.log.Error("Harmonize failed", "error", err)
		RespondError(c, http.StatusInternalServerError, "harmonize_failed", err)
		return
	}

	RespondOK(c, gin.H{
		"clusters": len(res.Clusters),
		"applied":  res.Applied,
		"failed":   res.Failed,
		"partial":  len(res.Failed) > 0,
	})
}
