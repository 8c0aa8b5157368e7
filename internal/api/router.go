package api

import "github.com/gin-gonic/gin"

// Handlers groups the route handlers the control plane mounts. Events may
// be nil when no broker is running (tests, degraded mode); the SSE route is
// simply not registered then.
type Handlers struct {
	Tasks  *TasksHandler
	Chat   *ChatHandler
	Events *EventsHandler
}

// Register mounts the public API routes.
func (h Handlers) Register(router *gin.Engine) {
	crawl := router.Group("/crawl/tasks")
	{
		crawl.POST("", h.Tasks.Create)
		crawl.GET("", h.Tasks.List)
		crawl.GET("/:id", h.Tasks.Get)
		crawl.POST("/:id/start", h.Tasks.Start)
		crawl.DELETE("/:id", h.Tasks.Delete)
		crawl.GET("/:id/documents", h.Tasks.Documents)
		crawl.GET("/:id/documents/:doc_id", h.Tasks.Document)
		if h.Events != nil {
			crawl.GET("/:id/events", h.Events.Stream)
		}
	}

	sessions := router.Group("/chat/sessions")
	{
		sessions.POST("", h.Chat.CreateSession)
		sessions.GET("/:id", h.Chat.GetSession)
		sessions.POST("/:id/messages", h.Chat.Message)
		sessions.POST("/:id/link-task", h.Chat.LinkTask)
		sessions.POST("/:id/upload", h.Chat.Upload)
	}
}
