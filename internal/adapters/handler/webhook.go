package handler

import (
	"context"
	"encoding/json"
	"errors"
	"github.com/aliaksandrluz19921520/whatsapp/internal/core/domain"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/hlog"
)

// Pipeline answers a single inbound message.
type Pipeline interface {
	Handle(ctx context.Context, message *domain.InboundMessage) (domain.Reply, error)
}

// Webhook receives Twilio form posts.
type Webhook struct {
	pipeline Pipeline
	path     string
}

func NewWebhook(pipeline Pipeline, path string) *Webhook {
	if path == "" {
		path = "/"
	}

	return &Webhook{pipeline: pipeline, path: path}
}

// RegisterRoutes attaches the webhook endpoints to the router.
func (h *Webhook) RegisterRoutes(r chi.Router) {
	r.Get(h.path, h.handleHealth)
	r.Post(h.path, h.handleMessage)
}

type statusResponse struct {
	Status string `json:"status"`
}

func (h *Webhook) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (h *Webhook) handleMessage(w http.ResponseWriter, r *http.Request) {
	l := hlog.FromRequest(r)

	if err := r.ParseForm(); err != nil {
		l.Debug().Err(err).Msg("invalid form payload")
		writeError(w, http.StatusBadRequest, "invalid form payload")
		return
	}

	message := parseForm(r)

	// the reply is sent even when the caller stops waiting
	_, err := h.pipeline.Handle(context.WithoutCancel(r.Context()), message)
	if err != nil {
		status := statusFor(err)
		l.Warn().Err(err).Int("status", status).Str("messageId", message.ID).Msg("webhook failed")
		writeError(w, status, publicMessage(status, err))
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "success"})
}

func parseForm(r *http.Request) *domain.InboundMessage {
	message := &domain.InboundMessage{
		ID:        r.PostFormValue("MessageSid"),
		Sender:    r.PostFormValue("From"),
		Body:      r.PostFormValue("Body"),
		Transport: domain.WhatsApp,
	}

	numMedia, err := strconv.Atoi(strings.TrimSpace(r.PostFormValue("NumMedia")))
	if err == nil && numMedia > 0 {
		message.MediaURL = r.PostFormValue("MediaUrl0")
		message.MediaType = r.PostFormValue("MediaContentType0")
	}

	return message
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyMessage), errors.Is(err, domain.ErrTextExtraction):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrMediaFetch), errors.Is(err, domain.ErrSendingReplyFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides upstream error details from the caller on 5xx responses.
func publicMessage(status int, err error) string {
	if status >= http.StatusInternalServerError {
		return http.StatusText(status)
	}

	return err.Error()
}

// writeJSON is a helper function for sending json responses.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": "error", "error": message})
}
