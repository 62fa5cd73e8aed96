package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/BitwaveCorp/slack-relay-svc/internal/slack"
)

type stubPoster struct {
	ack   slack.Ack
	err   error
	calls int

	channel string
	text    string
}

func (s *stubPoster) PostMessage(_ context.Context, channel, text string) (slack.Ack, error) {
	s.calls++
	s.channel = channel
	s.text = text
	if s.err != nil {
		return slack.Ack{}, s.err
	}
	ack := s.ack
	if ack.Text == "" {
		ack.Text = text
	}
	return ack, nil
}

func newTestRouter(poster MessagePoster, defaultChannel string, logOut io.Writer) http.Handler {
	if logOut == nil {
		logOut = io.Discard
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: slog.LevelInfo}))
	return NewRouter(NewHandler(poster, defaultChannel, logger), logger)
}

func doRequest(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func parseBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestSendMessage_UsesDefaultChannel(t *testing.T) {
	poster := &stubPoster{ack: slack.Ack{Channel: "C0OPS", Timestamp: "1.0"}}
	var logs bytes.Buffer
	h := newTestRouter(poster, "#ops", &logs)

	rec := doRequest(h, http.MethodPost, "/send-message/", `{"message":"deploy finished"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, "#ops", poster.channel)
	require.Equal(t, "deploy finished", poster.text)
	require.Equal(t, SendMessageResponse{Status: "success", Channel: "#ops", Message: "deploy finished"},
		parseBody[SendMessageResponse](t, rec))

	require.Equal(t, 1, strings.Count(logs.String(), "\n"), "exactly one log line per send")
	require.Contains(t, logs.String(), `"channel":"#ops"`)
	require.Contains(t, logs.String(), `"text":"deploy finished"`)
}

func TestSendMessage_ExplicitChannel(t *testing.T) {
	poster := &stubPoster{}
	h := newTestRouter(poster, "#ops", nil)

	rec := doRequest(h, http.MethodPost, "/send-message/", `{"message":"hi","channel":"#dev","extra":1}`)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "#dev", poster.channel)
	out := parseBody[SendMessageResponse](t, rec)
	require.Equal(t, "#dev", out.Channel)
	require.Equal(t, "hi", out.Message)
}

func TestSendMessage_BlankOrNullChannelFallsBackToDefault(t *testing.T) {
	for _, body := range []string{
		`{"message":"hi","channel":""}`,
		`{"message":"hi","channel":"   "}`,
		`{"message":"hi","channel":null}`,
	} {
		poster := &stubPoster{}
		h := newTestRouter(poster, "#ops", nil)

		rec := doRequest(h, http.MethodPost, "/send-message/", body)
		require.Equal(t, http.StatusOK, rec.Code, body)
		require.Equal(t, "#ops", poster.channel, body)
	}
}

func TestSendMessage_PathWithoutTrailingSlash(t *testing.T) {
	poster := &stubPoster{}
	h := newTestRouter(poster, "#ops", nil)

	rec := doRequest(h, http.MethodPost, "/send-message", `{"message":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, poster.calls)
}

func TestSendMessage_PlatformErrorMapsTo400(t *testing.T) {
	cases := []string{"channel_not_found", "not_authed", slack.CodeRateLimited, "http_500"}
	for _, code := range cases {
		t.Run(code, func(t *testing.T) {
			poster := &stubPoster{err: &slack.PlatformError{Code: code}}
			var logs bytes.Buffer
			h := newTestRouter(poster, "#ops", &logs)

			rec := doRequest(h, http.MethodPost, "/send-message/", `{"message":"hi","channel":"#nonexistent"}`)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			require.Equal(t, errorResponse{Detail: "Slack API error: " + code}, parseBody[errorResponse](t, rec))
			require.Equal(t, 1, poster.calls, "no retries")
			require.Equal(t, 1, strings.Count(logs.String(), "\n"))
			require.Contains(t, logs.String(), `"level":"ERROR"`)
		})
	}
}

func TestSendMessage_WrappedPlatformError(t *testing.T) {
	poster := &stubPoster{err: errors.Join(errors.New("context"), &slack.PlatformError{Code: "is_archived"})}
	h := newTestRouter(poster, "#ops", nil)

	rec := doRequest(h, http.MethodPost, "/send-message/", `{"message":"hi"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "Slack API error: is_archived", parseBody[errorResponse](t, rec).Detail)
}

func TestSendMessage_TransportErrorMapsTo502(t *testing.T) {
	poster := &stubPoster{err: errors.New("slack: post message: dial tcp: connection refused")}
	h := newTestRouter(poster, "#ops", nil)

	rec := doRequest(h, http.MethodPost, "/send-message/", `{"message":"hi"}`)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	out := parseBody[errorResponse](t, rec)
	require.Equal(t, "Slack API request failed", out.Detail)
	require.NotContains(t, out.Detail, "dial tcp")
}

func TestSendMessage_NoChannelConfigured(t *testing.T) {
	poster := &stubPoster{}
	h := newTestRouter(poster, "", nil)

	rec := doRequest(h, http.MethodPost, "/send-message/", `{"message":"hi"}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, parseBody[errorResponse](t, rec).Detail, "channel is required")
	require.Zero(t, poster.calls)
}

func TestSendMessage_ValidationErrors(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		loc     []string
		errType string
	}{
		{name: "empty body", body: ``, loc: []string{"body"}, errType: "json_invalid"},
		{name: "malformed json", body: `{"message":`, loc: []string{"body"}, errType: "json_invalid"},
		{name: "array body", body: `["hi"]`, loc: []string{"body"}, errType: "json_invalid"},
		{name: "null body", body: `null`, loc: []string{"body"}, errType: "json_invalid"},
		{name: "missing message", body: `{"channel":"#ops"}`, loc: []string{"body", "message"}, errType: "missing"},
		{name: "null message", body: `{"message":null}`, loc: []string{"body", "message"}, errType: "missing"},
		{name: "numeric message", body: `{"message":42}`, loc: []string{"body", "message"}, errType: "string_type"},
		{name: "empty message", body: `{"message":""}`, loc: []string{"body", "message"}, errType: "string_too_short"},
		{name: "blank message", body: `{"message":"  \n"}`, loc: []string{"body", "message"}, errType: "string_too_short"},
		{name: "numeric channel", body: `{"message":"hi","channel":7}`, loc: []string{"body", "channel"}, errType: "string_type"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			poster := &stubPoster{}
			h := newTestRouter(poster, "#ops", nil)

			rec := doRequest(h, http.MethodPost, "/send-message/", tc.body)

			require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
			out := parseBody[validationResponse](t, rec)
			require.Len(t, out.Detail, 1)
			require.Equal(t, tc.loc, out.Detail[0].Loc)
			require.Equal(t, tc.errType, out.Detail[0].Type)
			require.NotEmpty(t, out.Detail[0].Msg)
			require.Zero(t, poster.calls, "Slack must not be called for invalid input")
		})
	}
}

func TestSendMessage_ReportsEveryInvalidField(t *testing.T) {
	h := newTestRouter(&stubPoster{}, "#ops", nil)

	rec := doRequest(h, http.MethodPost, "/send-message/", `{"message":"","channel":false}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	out := parseBody[validationResponse](t, rec)
	require.Len(t, out.Detail, 2)
}

func TestSendMessage_BodyTooLarge(t *testing.T) {
	poster := &stubPoster{}
	h := newTestRouter(poster, "#ops", nil)

	body := `{"message":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	rec := doRequest(h, http.MethodPost, "/send-message/", body)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Zero(t, poster.calls)
}

func TestHealthCheck(t *testing.T) {
	for _, path := range []string{"/", "/health"} {
		// The health endpoint answers the same regardless of configuration.
		for _, channel := range []string{"", "#ops"} {
			h := newTestRouter(&stubPoster{}, channel, nil)

			rec := doRequest(h, http.MethodGet, path, "")
			require.Equal(t, http.StatusOK, rec.Code)
			require.Equal(t, HealthResponse{Status: "running", Message: "Slack API is live!"}, parseBody[HealthResponse](t, rec))
		}
	}
}

func TestRoutes_MethodAndPathMismatch(t *testing.T) {
	h := newTestRouter(&stubPoster{}, "#ops", nil)

	require.Equal(t, http.StatusMethodNotAllowed, doRequest(h, http.MethodGet, "/send-message/", "").Code)
	require.Equal(t, http.StatusMethodNotAllowed, doRequest(h, http.MethodPost, "/", "{}").Code)
	require.Equal(t, http.StatusNotFound, doRequest(h, http.MethodGet, "/unknown", "").Code)
}
