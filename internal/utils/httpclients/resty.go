package httpclients

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"github.com/janhq/support-chat/internal/utils/platformerrors"
)

type httpClientStartsAt struct{}

// NewClient returns a resty client that logs every exchange at debug level.
// Streaming responses are never parsed or logged.
func NewClient(clientName string, log zerolog.Logger) *resty.Client {
	client := resty.New()
	client.AddRequestMiddleware(func(c *resty.Client, r *resty.Request) error {
		ctx := context.WithValue(r.Context(), httpClientStartsAt{}, time.Now())
		r.SetContext(ctx)
		return nil
	})
	client.AddResponseMiddleware(func(c *resty.Client, r *resty.Response) error {
		ctx := r.Request.Context()
		startTime, _ := ctx.Value(httpClientStartsAt{}).(time.Time)

		event := log.Debug().
			Str("client", clientName).
			Int("status", r.StatusCode()).
			Dur("latency", time.Since(startTime))
		if requestID := platformerrors.RequestIDFromContext(ctx); requestID != "" {
			event = event.Str("request_id", requestID)
		}
		if raw := r.Request.RawRequest; raw != nil {
			event = event.Str("method", raw.Method).Str("path", raw.URL.Path)
		}
		event.Bool("streaming", r.Request.DoNotParseResponse).Msg("HTTP client request")
		return nil
	})
	return client
}
