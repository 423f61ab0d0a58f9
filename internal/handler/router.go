package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flowcraft-app/flowcraft/internal/middleware"
)

type RouterDeps struct {
	Auth        *AuthHandler
	Connections *ConnectionHandler
	Meetings    *MeetingHandler
	Drafts      *DraftHandler
	Tasks       *TaskHandler
	Flashcards  *FlashcardHandler
	Files       *FileHandler
	JWTSecret   []byte
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/auth/register", deps.Auth.Register)
	api.POST("/auth/login", deps.Auth.Login)

	// provider redirects land here without a JWT; the state carries
	// the user
	api.GET("/connections/:provider/callback", deps.Connections.Callback)
	api.GET("/files/:key", deps.Files.Get)

	authGroup := api.Group("")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.GET("/auth/me", deps.Auth.Me)

	authGroup.GET("/connections", deps.Connections.List)
	authGroup.GET("/connections/:provider", deps.Connections.Status)
	authGroup.GET("/connections/:provider/guilds", deps.Connections.Guilds)
	authGroup.POST("/connections/:provider", deps.Connections.Connect)
	authGroup.DELETE("/connections/:provider", deps.Connections.Disconnect)

	authGroup.GET("/meetings", deps.Meetings.List)
	authGroup.GET("/meetings/:id", deps.Meetings.Get)
	authGroup.POST("/meetings/:id/refresh", deps.Meetings.Refresh)
	authGroup.PUT("/meetings/:id/status", deps.Meetings.UpdateStatus)
	authGroup.POST("/meetings/:id/monitor", deps.Meetings.StartMonitor)
	authGroup.DELETE("/meetings/:id/monitor", deps.Meetings.StopMonitor)
	authGroup.GET("/meetings/:id/participants", deps.Meetings.Participants)
	authGroup.POST("/meetings/:id/transcript", deps.Meetings.PullTranscript)
	authGroup.GET("/meetings/:id/transcript", deps.Meetings.GetTranscript)
	authGroup.GET("/meetings/:id/transcript/content", deps.Meetings.TranscriptContent)

	authGroup.POST("/drafts", deps.Drafts.Create)
	authGroup.POST("/drafts/generate", deps.Drafts.Generate)
	authGroup.GET("/drafts", deps.Drafts.List)
	authGroup.GET("/drafts/:id", deps.Drafts.Get)
	authGroup.PUT("/drafts/:id", deps.Drafts.Update)
	authGroup.POST("/drafts/:id/submit", deps.Drafts.Submit)
	authGroup.POST("/drafts/:id/approve", deps.Drafts.Approve)
	authGroup.POST("/drafts/:id/reject", deps.Drafts.Reject)
	authGroup.POST("/drafts/:id/send", middleware.RateLimit(time.Second), deps.Drafts.Send)
	authGroup.DELETE("/drafts/:id", deps.Drafts.Delete)

	authGroup.POST("/tasks", deps.Tasks.Create)
	authGroup.GET("/tasks", deps.Tasks.List)
	authGroup.PUT("/tasks/:id", deps.Tasks.Update)
	authGroup.POST("/tasks/:id/toggle", deps.Tasks.Toggle)
	authGroup.DELETE("/tasks/:id", deps.Tasks.Delete)

	authGroup.POST("/decks", deps.Flashcards.CreateDeck)
	authGroup.GET("/decks", deps.Flashcards.ListDecks)
	authGroup.DELETE("/decks/:id", deps.Flashcards.DeleteDeck)
	authGroup.POST("/decks/:id/cards", deps.Flashcards.AddCard)
	authGroup.POST("/decks/:id/generate", deps.Flashcards.GenerateCards)
	authGroup.GET("/decks/:id/cards", deps.Flashcards.ListCards)
	authGroup.POST("/cards/:id/review", deps.Flashcards.Review)
	authGroup.DELETE("/cards/:id", deps.Flashcards.DeleteCard)
}
