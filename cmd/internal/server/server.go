package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/zhukovvlad/peni-go/cmd/internal/config"
	"github.com/zhukovvlad/peni-go/cmd/internal/history"
	"github.com/zhukovvlad/peni-go/cmd/pkg/calcclient"
	"github.com/zhukovvlad/peni-go/cmd/pkg/logging"
)

// Server HTTP-шлюз для веб-интерфейса: проксирует инспекцию, отправку
// и статус пакетов на расчётный сервис и ведёт локальную историю
// недавних пакетов.
type Server struct {
	router  *gin.Engine
	logger  *logging.Logger
	client  *calcclient.Client
	history *history.Store
	config  *config.Config
}

func NewServer(
	logger *logging.Logger,
	client *calcclient.Client,
	historyStore *history.Store,
	cfg *config.Config,
) *Server {
	server := &Server{
		logger:  logger,
		client:  client,
		history: historyStore,
		config:  cfg,
	}

	router := gin.Default()

	// Настройка CORS
	corsConfig := cors.DefaultConfig()
	if cfg.IsDebug != nil && *cfg.IsDebug {
		corsConfig.AllowOrigins = []string{
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		}
	} else {
		if len(cfg.CORS.AllowedOrigins) > 0 {
			corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
		} else {
			logger.Warn("CORS allowed_origins not configured in production - using restrictive default")
			corsConfig.AllowOrigins = []string{}
		}
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Requested-With"}
	corsConfig.ExposeHeaders = []string{"Content-Length", "Content-Disposition"}
	router.Use(cors.New(corsConfig))

	router.GET("/home", server.HomeHandler)

	api := router.Group("/api")
	api.Use(RateLimitMiddleware(50, 100)) // 50 req/s, burst 100
	{
		api.POST("/pdfs/inspect", server.inspectHandler)

		api.POST("/batches/process", server.processBatchHandler)
		api.GET("/batches/:batch_id", server.getBatchHandler)
		api.GET("/batches/:batch_id/download/:kind", server.downloadBatchArtifactHandler)

		api.GET("/items/:item_id/download/:kind", server.downloadItemArtifactHandler)

		api.GET("/history", server.historyHandler)
	}

	server.router = router
	return server
}

func (s *Server) Start(address string) error {
	return s.router.Run(address)
}

func errorResponse(err error) gin.H {
	return gin.H{"error": err.Error()}
}
