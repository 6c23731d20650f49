package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/htonioni/smart-note-ai/internal/errs"
	"github.com/htonioni/smart-note-ai/internal/notes"
	"go.uber.org/zap"
)

const (
	messageInvalidBody     = "invalid request body"
	messageAIUnavailable   = "AI service is not configured"
	messageTooManyAttempts = "too many attempts, try again later"
	messageIncorrectAnswer = "incorrect answer"
	messageGateLocked      = "access gate locked"
)

type noteRequest struct {
	Title   string   `json:"title"`
	Body    string   `json:"body"`
	Tags    []string `json:"tags"`
	Summary *string  `json:"summary"`
}

func (r noteRequest) fields() notes.Fields {
	return notes.Fields{Title: r.Title, Body: r.Body, Tags: r.Tags, Summary: r.Summary}
}

type generateRequest struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type gateRequest struct {
	Answer string `json:"answer"`
}

func (h *httpHandler) handleListNotes(c *gin.Context) {
	stored, err := h.notesService.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	if stored == nil {
		stored = []notes.Note{}
	}
	c.JSON(http.StatusOK, stored)
}

func (h *httpHandler) handleGetNote(c *gin.Context) {
	noteID, ok := h.noteIDParam(c)
	if !ok {
		return
	}
	note, err := h.notesService.Get(c.Request.Context(), noteID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func (h *httpHandler) handleCreateNote(c *gin.Context) {
	var request noteRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondError(c, errs.Wrap(errs.InvalidRequest, messageInvalidBody, err))
		return
	}
	note, err := h.notesService.Create(c.Request.Context(), request.fields())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, note)
}

func (h *httpHandler) handleUpdateNote(c *gin.Context) {
	noteID, ok := h.noteIDParam(c)
	if !ok {
		return
	}
	var request noteRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondError(c, errs.Wrap(errs.InvalidRequest, messageInvalidBody, err))
		return
	}
	note, err := h.notesService.Update(c.Request.Context(), noteID, request.fields())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, note)
}

func (h *httpHandler) handleDeleteNote(c *gin.Context) {
	noteID, ok := h.noteIDParam(c)
	if !ok {
		return
	}
	if err := h.notesService.Delete(c.Request.Context(), noteID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *httpHandler) handleGenerateContent(c *gin.Context) {
	if h.generator == nil {
		h.respondError(c, errs.New(errs.Unavailable, messageAIUnavailable))
		return
	}
	var request generateRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondError(c, errs.Wrap(errs.InvalidRequest, messageInvalidBody, err))
		return
	}
	content, err := h.generator.Generate(c.Request.Context(), request.Title, request.Body)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": content})
}

func (h *httpHandler) handleValidateGate(c *gin.Context) {
	if !h.gate.Enabled() {
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}
	var request gateRequest
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Answer) == "" {
		h.respondError(c, errs.New(errs.InvalidRequest, messageInvalidBody))
		return
	}
	if !h.gate.AllowAttempt(c.ClientIP()) {
		h.respondError(c, errs.New(errs.RateLimited, messageTooManyAttempts))
		return
	}
	if !h.gate.Check(request.Answer) {
		h.logger.Info("gate answer rejected", zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusUnauthorized, gin.H{"error": errs.InvalidRequest, "message": messageIncorrectAnswer})
		return
	}

	token, _, err := h.gate.Issue()
	if err != nil {
		h.logger.Error("failed to issue gate session", zap.Error(err))
		h.respondError(c, errs.Wrap(errs.Server, "failed to issue session", err))
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.gate.CookieName(), token, int(h.gate.SessionTTL().Seconds()), "/", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *httpHandler) noteIDParam(c *gin.Context) (notes.NoteID, bool) {
	noteID, err := notes.NewNoteID(c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return 0, false
	}
	return noteID, true
}

func (h *httpHandler) respondError(c *gin.Context, err error) {
	kind := errs.KindOf(err)
	status := errs.HTTPStatus(kind)
	payload := gin.H{"error": kind, "message": errs.MessageOf(err)}

	var serviceErr *notes.ServiceError
	if errors.As(err, &serviceErr) {
		payload["code"] = serviceErr.Code()
	}
	if status >= http.StatusInternalServerError {
		h.logger.Warn("request failed",
			zap.String("path", c.FullPath()),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}
	c.JSON(status, payload)
}
