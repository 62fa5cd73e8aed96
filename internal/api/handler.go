package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/BitwaveCorp/slack-relay-svc/internal/slack"
)

const (
	healthMessage      = "Slack API is live!"
	slackErrorPrefix   = "Slack API error: "
	slackUnreachable   = "Slack API request failed"
	noChannelAvailable = "channel is required: none given and SLACK_CHANNEL is not set"
)

// MessagePoster is the Slack operation the relay needs. *slack.Client satisfies it.
type MessagePoster interface {
	PostMessage(ctx context.Context, channel, text string) (slack.Ack, error)
}

type SendMessageResponse struct {
	Status  string `json:"status"`
	Channel string `json:"channel"`
	Message string `json:"message"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type Handler struct {
	poster         MessagePoster
	defaultChannel string
	logger         *slog.Logger
}

func NewHandler(poster MessagePoster, defaultChannel string, logger *slog.Logger) *Handler {
	return &Handler{
		poster:         poster,
		defaultChannel: defaultChannel,
		logger:         logger,
	}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", h.handleHealthCheck)
	mux.HandleFunc("GET /health", h.handleHealthCheck)
	mux.HandleFunc("POST /send-message/{$}", h.handleSendMessage)
	mux.HandleFunc("POST /send-message", h.handleSendMessage)
}

func (h *Handler) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "running", Message: healthMessage})
}

func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	correlationID := CorrelationIDFrom(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	msg, verrs := decodeOutboundMessage(r.Body)
	if len(verrs) > 0 {
		h.logger.Warn("Rejected invalid message request",
			"correlation_id", correlationID,
			"errors", len(verrs),
			"first_error", verrs[0].Type)
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Detail: verrs})
		return
	}

	channel := h.resolveChannel(msg.Channel)
	if channel == "" {
		h.logger.Error("No channel to send to", "correlation_id", correlationID)
		writeError(w, http.StatusBadRequest, noChannelAvailable)
		return
	}

	ack, err := h.poster.PostMessage(r.Context(), channel, msg.Message)
	if err != nil {
		if pe, ok := slack.AsPlatformError(err); ok {
			h.logger.Error("Error sending message",
				"error", pe.Code,
				"channel", channel,
				"correlation_id", correlationID)
			writeError(w, http.StatusBadRequest, slackErrorPrefix+pe.Code)
			return
		}
		h.logger.Error("Failed to reach Slack",
			"error", err,
			"channel", channel,
			"correlation_id", correlationID)
		writeError(w, http.StatusBadGateway, slackUnreachable)
		return
	}

	h.logger.Info("Message sent",
		"channel", channel,
		"text", ack.Text,
		"ts", ack.Timestamp,
		"correlation_id", correlationID)

	writeJSON(w, http.StatusOK, SendMessageResponse{
		Status:  "success",
		Channel: channel,
		Message: msg.Message,
	})
}

// resolveChannel falls back to the configured default when the request names
// no channel. The default is used verbatim.
func (h *Handler) resolveChannel(requested string) string {
	if strings.TrimSpace(requested) != "" {
		return requested
	}
	return h.defaultChannel
}
