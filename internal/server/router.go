package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/htonioni/smart-note-ai/internal/ai"
	"github.com/htonioni/smart-note-ai/internal/gate"
	"github.com/htonioni/smart-note-ai/internal/notes"
	"go.uber.org/zap"
)

var errMissingNotesService = errors.New("notes service dependency required")

// NotesService is the persistence layer behind the notes routes.
type NotesService interface {
	List(ctx context.Context) ([]notes.Note, error)
	Get(ctx context.Context, id notes.NoteID) (notes.Note, error)
	Create(ctx context.Context, fields notes.Fields) (notes.Note, error)
	Update(ctx context.Context, id notes.NoteID, fields notes.Fields) (notes.Note, error)
	Delete(ctx context.Context, id notes.NoteID) error
}

// ContentGenerator produces AI enrichment for a note.
type ContentGenerator interface {
	Generate(ctx context.Context, title, body string) (ai.Content, error)
}

// Dependencies wires the router. Generator and Gate are optional: without a
// generator the AI route answers unavailable, without an enabled gate every
// route is open.
type Dependencies struct {
	NotesService NotesService
	Generator    ContentGenerator
	Gate         *gate.Gate
	Logger       *zap.Logger
}

// NewHTTPHandler builds the API router.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.NotesService == nil {
		return nil, errMissingNotesService
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestIDMiddleware())
	router.Use(accessLogMiddleware(logger))
	router.Use(corsMiddleware())

	handler := &httpHandler{
		notesService: deps.NotesService,
		generator:    deps.Generator,
		gate:         deps.Gate,
		logger:       logger,
	}

	router.GET("/healthz", handler.handleHealth)
	router.POST("/api/auth/validate-gate", handler.handleValidateGate)

	protected := router.Group("/api")
	protected.Use(handler.requireGate)
	protected.GET("/notes", handler.handleListNotes)
	protected.POST("/notes", handler.handleCreateNote)
	protected.GET("/notes/:id", handler.handleGetNote)
	protected.PUT("/notes/:id", handler.handleUpdateNote)
	protected.DELETE("/notes/:id", handler.handleDeleteNote)
	protected.POST("/ai/generate-content", handler.handleGenerateContent)
	protected.POST("/ai/suggest-tags", handler.handleGenerateContent)

	return router, nil
}

type httpHandler struct {
	notesService NotesService
	generator    ContentGenerator
	gate         *gate.Gate
	logger       *zap.Logger
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
