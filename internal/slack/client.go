// Package slack wraps the Slack Web API client used to relay messages.
package slack

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	slackapi "github.com/slack-go/slack"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultAPIURL  = "https://slack.com/api/"
	defaultTimeout = 10 * time.Second
	tracerName     = "github.com/BitwaveCorp/slack-relay-svc/internal/slack"
)

// Client posts messages to Slack. It is created once at startup and shared by
// all requests; it holds no mutable state.
type Client struct {
	api    *slackapi.Client
	logger *slog.Logger
	tracer trace.Tracer
}

type options struct {
	apiURL         string
	timeout        time.Duration
	httpClient     *http.Client
	tracerProvider trace.TracerProvider
}

type Option func(*options)

// WithAPIURL points the client at another Slack Web API base URL.
func WithAPIURL(apiURL string) Option {
	return func(o *options) {
		o.apiURL = strings.TrimSpace(apiURL)
	}
}

// WithTimeout bounds every Slack round trip. Ignored when WithHTTPClient is used.
func WithTimeout(timeout time.Duration) Option {
	return func(o *options) {
		o.timeout = timeout
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *options) {
		o.httpClient = httpClient
	}
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}

// NewClient builds a Slack client authenticated with the bot token. An empty
// token is accepted; Slack rejects the first call with not_authed.
func NewClient(token string, logger *slog.Logger, opts ...Option) *Client {
	o := options{
		apiURL:  defaultAPIURL,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.apiURL == "" {
		o.apiURL = defaultAPIURL
	}
	if !strings.HasSuffix(o.apiURL, "/") {
		o.apiURL += "/"
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{
			Timeout:   o.timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport, otelhttp.WithTracerProvider(o.tracerProvider)),
		}
	}

	return &Client{
		api: slackapi.New(token,
			slackapi.OptionAPIURL(o.apiURL),
			slackapi.OptionHTTPClient(o.httpClient),
		),
		logger: logger,
		tracer: o.tracerProvider.Tracer(tracerName),
	}
}

// PostMessage sends text to channel via chat.postMessage. Slack-side failures
// are returned as *PlatformError.
func (c *Client) PostMessage(ctx context.Context, channel, text string) (Ack, error) {
	ctx, span := c.tracer.Start(ctx, "slack.chat.postMessage",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("slack.channel", channel)),
	)
	defer span.End()

	respChannel, ts, respText, err := c.api.SendMessageContext(ctx, channel, slackapi.MsgOptionText(text, false))
	if err != nil {
		err = classify(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if pe, ok := AsPlatformError(err); ok {
			span.SetAttributes(attribute.String("slack.error", pe.Code))
		}
		return Ack{}, err
	}

	// chat.postMessage nests the echoed text under "message"; fall back to what we sent.
	if respText == "" {
		respText = text
	}
	c.logger.Debug("Slack acknowledged message", "channel", respChannel, "ts", ts)
	span.SetAttributes(attribute.String("slack.ts", ts))

	return Ack{Channel: respChannel, Timestamp: ts, Text: respText}, nil
}
