// Package handlers is the HTTP boundary of the service. Component errors are
// translated here into a small closed set of caller-visible outcomes; stack
// traces and provider detail never leave the process.
package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/arko007/chexray-api/internal/chat"
	"github.com/arko007/chexray-api/internal/conditions"
	"github.com/arko007/chexray-api/internal/llm"
	"github.com/arko007/chexray-api/internal/metrics"
	"github.com/arko007/chexray-api/internal/preprocess"
)

// Caller-visible failure messages. Short, calm, no technical detail.
const (
	msgEmptyRequest   = "Please provide a message or upload an image."
	msgImageTooLarge  = "The uploaded image is too large. Please upload a smaller file."
	msgBadMediaType   = "Invalid file type. Please upload an image."
	msgBadImage       = "The uploaded file could not be read as an image. Please try another file."
	msgAnalysisFailed = "The image could not be analyzed right now. Please try again."
	msgServiceBusy    = "The service could not process your request right now. Please try again."
)

// ModelStatus is the read-only view of the classifier used by the health
// boundary.
type ModelStatus interface {
	Ready() bool
	Device() string
}

// ChatResponse is the response contract exposed to the UI collaborator.
type ChatResponse struct {
	Response         string             `json:"response"`
	HasImageAnalysis bool               `json:"has_image_analysis"`
	Conditions       *conditions.Scores `json:"conditions"`
	Flagged          map[string]bool    `json:"flagged,omitempty"`
}

type Handler struct {
	orchestrator  *chat.Orchestrator
	model         ModelStatus
	maxImageBytes int64
}

func NewHandler(orchestrator *chat.Orchestrator, model ModelStatus, maxImageBytes int64) *Handler {
	return &Handler{
		orchestrator:  orchestrator,
		model:         model,
		maxImageBytes: maxImageBytes,
	}
}

// Health reports whether the checkpoint finished loading and which device it
// occupies. Consumed by deployment tooling, not by the pipeline.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":       "healthy",
		"model_loaded": h.model.Ready(),
		"device":       h.model.Device(),
	})
}

// Chat handles one conversational turn: optional "message" text field plus
// an optional "image" attachment in a multipart form.
func (h *Handler) Chat(c *gin.Context) {
	requestID := uuid.NewString()
	logger := log.WithField("request_id", requestID)
	start := time.Now()

	turn := chat.Turn{Text: strings.TrimSpace(c.PostForm("message"))}

	file, err := c.FormFile("image")
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		metrics.ChatTotal.WithLabelValues("bad_request").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": msgBadImage})
		return
	}
	if file != nil {
		if file.Size > h.maxImageBytes {
			metrics.ChatTotal.WithLabelValues("too_large").Inc()
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": msgImageTooLarge})
			return
		}
		data, declaredType, err := readAttachment(file, h.maxImageBytes)
		if err != nil {
			logger.WithError(err).Error("failed to read image attachment")
			metrics.ChatTotal.WithLabelValues("bad_request").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": msgBadImage})
			return
		}
		turn.Image = data
		turn.ImageType = declaredType
	}

	// Content is never logged, only sizes and outcomes.
	logger.WithFields(log.Fields{
		"has_text":    turn.Text != "",
		"image_bytes": len(turn.Image),
	}).Info("chat turn received")

	result, err := h.orchestrator.Run(c.Request.Context(), turn)
	if err != nil {
		h.writeError(c, logger, err)
		return
	}

	metrics.ChatTotal.WithLabelValues("ok").Inc()
	logger.WithFields(log.Fields{
		"has_image_analysis": result.HasImageAnalysis,
		"duration":           time.Since(start).String(),
	}).Info("chat turn completed")

	c.JSON(http.StatusOK, ChatResponse{
		Response:         result.Response,
		HasImageAnalysis: result.HasImageAnalysis,
		Conditions:       result.Conditions,
		Flagged:          result.Flagged,
	})
}

func readAttachment(file *multipart.FileHeader, maxBytes int64) ([]byte, string, error) {
	f, err := file.Open()
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, "", err
	}
	return data, file.Header.Get("Content-Type"), nil
}

// writeError maps component errors onto the closed set of HTTP outcomes.
func (h *Handler) writeError(c *gin.Context, logger *log.Entry, err error) {
	switch {
	case errors.Is(err, chat.ErrEmptyRequest):
		metrics.ChatTotal.WithLabelValues("empty_request").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": msgEmptyRequest})
	case errors.Is(err, preprocess.ErrInputTooLarge):
		metrics.ChatTotal.WithLabelValues("too_large").Inc()
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": msgImageTooLarge})
	case errors.Is(err, preprocess.ErrUnsupportedMediaType):
		metrics.ChatTotal.WithLabelValues("bad_media_type").Inc()
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": msgBadMediaType})
	case errors.Is(err, preprocess.ErrDecode):
		metrics.ChatTotal.WithLabelValues("bad_image").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": msgBadImage})
	case errors.Is(err, llm.ErrUnavailable), errors.Is(err, llm.ErrRejected), errors.Is(err, llm.ErrTimeout):
		// Interpretation failed with nothing else to return. Full detail
		// server-side, a generic message to the caller.
		logger.WithError(err).Error("interpretation failed")
		metrics.ChatTotal.WithLabelValues("llm_error").Inc()
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": msgServiceBusy})
	default:
		logger.WithError(err).Error("chat turn failed")
		metrics.ChatTotal.WithLabelValues("internal_error").Inc()
		c.JSON(http.StatusInternalServerError, gin.H{"error": msgAnalysisFailed})
	}
}
