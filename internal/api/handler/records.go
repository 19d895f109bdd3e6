package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/timmy/finanalyzer/internal/api/middleware"
	"github.com/timmy/finanalyzer/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ListAnalysesResponse is a page of persisted results.
type ListAnalysesResponse struct {
	Items  []domain.AnalysisRecord `json:"items"`
	Total  int64                   `json:"total"`
	Limit  int                     `json:"limit"`
	Offset int                     `json:"offset"`
}

// ListAnalyses handles GET /analyses.
func (h *AnalysisHandler) ListAnalyses(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	items, total, err := h.svc.ListRecords(c.Request.Context(), limit, offset)
	if err != nil {
		middleware.GetLogger(c).WithError(err).Error("Failed to list analyses")
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to list analyses: " + err.Error()})
		return
	}
	if items == nil {
		items = []domain.AnalysisRecord{}
	}

	c.JSON(http.StatusOK, ListAnalysesResponse{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	})
}

// GetAnalysis handles GET /analyses/:id.
func (h *AnalysisHandler) GetAnalysis(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid analysis id"})
		return
	}

	rec, err := h.svc.GetRecord(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"detail": "Analysis not found"})
			return
		}
		middleware.GetLogger(c).WithError(err).Errorf("Failed to get analysis %d", id)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, rec)
}
