package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/timmy/finanalyzer/internal/api/middleware"
	"github.com/timmy/finanalyzer/internal/domain"
	"github.com/timmy/finanalyzer/internal/service"
)

// RootMessage is returned by GET /.
const RootMessage = "Financial Document Analyzer is running"

// AnalysisService is what the handlers need from the service layer.
type AnalysisService interface {
	Analyze(ctx context.Context, upload service.Upload, query string) (*service.Submission, error)
	Status(ctx context.Context, id string) (domain.JobStatus, error)
	ListRecords(ctx context.Context, limit, offset int) ([]domain.AnalysisRecord, int64, error)
	GetRecord(ctx context.Context, id uint) (*domain.AnalysisRecord, error)
}

// AnalysisHandler handles upload and job status endpoints.
type AnalysisHandler struct {
	svc AnalysisService
}

// NewAnalysisHandler creates a new analysis handler.
// Parameters:
//   - svc: analysis service instance.
//
// Returns:
//   - *AnalysisHandler: initialized handler.
func NewAnalysisHandler(svc AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{svc: svc}
}

// AnalyzeResponse is the body of a successful POST /analyze.
type AnalyzeResponse struct {
	Status   string `json:"status"`
	TaskID   string `json:"task_id"`
	Message  string `json:"message"`
	FilePath string `json:"file_path"`
}

// Root handles GET /.
func (h *AnalysisHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": RootMessage})
}

// Analyze handles POST /analyze.
// Parameters:
//   - c: Gin request context with multipart fields "file" and "query".
//
// Returns: none (writes JSON response).
func (h *AnalysisHandler) Analyze(c *gin.Context) {
	log := middleware.GetLogger(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"detail": fmt.Sprintf("upload exceeds the %d byte request limit", tooLarge.Limit),
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"detail": "file is required"})
		return
	}
	query := c.PostForm("query")
	if strings.TrimSpace(query) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "query is required"})
		return
	}

	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "File save failed: " + err.Error()})
		return
	}
	defer f.Close()

	sub, err := h.svc.Analyze(c.Request.Context(), service.Upload{
		Filename:    fileHeader.Filename,
		Size:        fileHeader.Size,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Body:        f,
	}, query)
	if err != nil {
		log.WithError(err).Warnf("Analyze request failed for %s", fileHeader.Filename)
		status, detail := analyzeError(err)
		c.JSON(status, gin.H{"detail": detail})
		return
	}

	c.JSON(http.StatusOK, AnalyzeResponse{
		Status:   "processing",
		TaskID:   sub.JobID,
		Message:  "Analysis started in background",
		FilePath: sub.FilePath,
	})
}

func analyzeError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidUpload):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrFileSave):
		cause := strings.TrimPrefix(err.Error(), domain.ErrFileSave.Error()+": ")
		return http.StatusInternalServerError, "File save failed: " + cause
	default:
		return http.StatusInternalServerError, err.Error()
	}
}

// Status handles GET /status/:task_id.
func (h *AnalysisHandler) Status(c *gin.Context) {
	id := c.Param("task_id")

	st, err := h.svc.Status(c.Request.Context(), id)
	if err != nil {
		middleware.GetLogger(c).WithError(err).Errorf("Status lookup failed for %s", id)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	label := st.Label()
	switch label {
	case "completed":
		c.JSON(http.StatusOK, gin.H{"status": label, "result": st.Result})
	case string(domain.JobStateFailed):
		c.JSON(http.StatusOK, gin.H{"status": label, "error": st.Error})
	default:
		c.JSON(http.StatusOK, gin.H{"status": label})
	}
}
