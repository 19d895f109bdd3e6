package api

import (
	"github.com/gin-gonic/gin"

	"github.com/timmy/finanalyzer/internal/api/handler"
	"github.com/timmy/finanalyzer/internal/api/middleware"
	"github.com/timmy/finanalyzer/internal/logger"
)

// multipartOverhead leaves room for form fields and boundaries on top of the file.
const multipartOverhead = 1 << 20

// RouterConfig holds the HTTP surface settings.
type RouterConfig struct {
	Mode           string // release, test, debug
	CORS           middleware.CORSConfig
	MaxUploadBytes int64
}

// SetupRouter configures the Gin router with all routes
func SetupRouter(svc handler.AnalysisService, cfg RouterConfig, log *logger.Logger) *gin.Engine {
	// Set Gin mode
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	if cfg.MaxUploadBytes > 0 {
		r.MaxMultipartMemory = cfg.MaxUploadBytes
	}

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(cfg.CORS))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	analysisHandler := handler.NewAnalysisHandler(svc)

	r.GET("/", analysisHandler.Root)
	r.GET("/health", healthHandler.Health)

	upload := r.Group("/")
	if cfg.MaxUploadBytes > 0 {
		upload.Use(middleware.BodyLimit(cfg.MaxUploadBytes + multipartOverhead))
	}
	upload.POST("/analyze", analysisHandler.Analyze)

	r.GET("/status/:task_id", analysisHandler.Status)
	r.GET("/analyses", analysisHandler.ListAnalyses)
	r.GET("/analyses/:id", analysisHandler.GetAnalysis)

	return r
}
