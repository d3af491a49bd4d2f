package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"freelanceDesk/internal/api/middleware"
	"freelanceDesk/internal/docgen"
	"freelanceDesk/internal/realtime"
	"freelanceDesk/internal/store"
)

// Dependencies 汇总路由需要的组件。RateCounter 与 Queue 可以为 nil。
type Dependencies struct {
	Store          store.Store
	Documents      *docgen.Service
	Hub            *realtime.Hub
	Keys           middleware.KeyVerifier
	RateCounter    middleware.RateCounter
	RateLimit      int
	Queue          TaskEnqueuer
	AllowedOrigins []string
	Logger         *slog.Logger
	Now            func() time.Time
}

// RegisterRoutes 注册 /api 路由与 /ws 端点。
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	documents := deps.Documents
	if documents == nil {
		documents = docgen.NewService(deps.Store, nil, logger)
	}

	clientHandler := NewClientHandler(deps.Store)
	projectHandler := NewProjectHandler(deps.Store, deps.Now)
	documentHandler := NewDocumentHandler(deps.Store, documents)
	resumeHandler := NewResumeHandler(deps.Store)
	webhookHandler := NewWebhookHandler(deps.Store, deps.Queue)
	externalDataHandler := NewExternalDataHandler(deps.Store)
	statsHandler := NewStatsHandler(deps.Store, deps.Now)

	if deps.Hub != nil {
		wsHandler := NewWsHandler(deps.Hub, logger, deps.AllowedOrigins)
		router.GET("/ws", wsHandler.HandleConnection)
	}

	api := router.Group("/api")
	{
		clients := api.Group("/clients")
		{
			clients.GET("", clientHandler.ListClients)
			clients.POST("", clientHandler.CreateClient)
			clients.GET("/:id", clientHandler.GetClient)
			clients.PATCH("/:id", clientHandler.UpdateClient)
			clients.DELETE("/:id", clientHandler.DeleteClient)
		}

		projects := api.Group("/projects")
		{
			projects.GET("", projectHandler.ListProjects)
			projects.POST("", projectHandler.CreateProject)
			projects.GET("/:id", projectHandler.GetProject)
			projects.PATCH("/:id", projectHandler.UpdateProject)
			projects.DELETE("/:id", projectHandler.DeleteProject)
		}

		documentsGroup := api.Group("/documents")
		{
			documentsGroup.GET("", documentHandler.ListDocuments)
			documentsGroup.POST("", documentHandler.CreateDocument)
			documentsGroup.POST("/generate", documentHandler.GenerateDocument)
			documentsGroup.GET("/:id", documentHandler.GetDocument)
			documentsGroup.GET("/:id/download-link", documentHandler.GetDownloadLink)
			documentsGroup.PATCH("/:id", documentHandler.UpdateDocument)
			documentsGroup.DELETE("/:id", documentHandler.DeleteDocument)
		}

		resumes := api.Group("/resumes")
		{
			resumes.GET("", resumeHandler.ListResumes)
			resumes.POST("", resumeHandler.CreateResume)
			resumes.GET("/:id", resumeHandler.GetResume)
			resumes.PATCH("/:id", resumeHandler.UpdateResume)
			resumes.DELETE("/:id", resumeHandler.DeleteResume)
		}

		api.POST("/webhook/data",
			middleware.APIKeyMiddleware(deps.Keys),
			middleware.RateLimitMiddleware(deps.RateCounter, deps.RateLimit, time.Minute),
			webhookHandler.ReceiveData,
		)

		external := api.Group("/external-data")
		{
			external.GET("", externalDataHandler.ListExternalData)
			external.GET("/:id", externalDataHandler.GetExternalData)
			external.POST("/:id/processed", externalDataHandler.MarkProcessed)
		}

		api.GET("/stats", statsHandler.GetStats)
	}
}
