package remote

import (
	"context"
	"log/slog"
	"net/http"

	"feedsync/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

type callLabelsKey struct{}

type callLabels struct {
	service   string
	operation string
}

func withCallLabels(req *http.Request, service, operation string) *http.Request {
	ctx := context.WithValue(req.Context(), callLabelsKey{}, callLabels{service: service, operation: operation})
	return req.WithContext(ctx)
}

// instrumentedTransport records metrics, a span and a debug log line per request.
type instrumentedTransport struct {
	underlyingTransport http.RoundTripper
}

// RoundTrip executes a single HTTP transaction.
func (t *instrumentedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	labels, _ := req.Context().Value(callLabelsKey{}).(callLabels)
	if labels.service == "" {
		labels = callLabels{service: "unknown", operation: req.Method}
	}

	ctx, span := observability.StartSpan(req.Context(), "remote."+labels.service+"."+labels.operation,
		attribute.String("http.method", req.Method),
		attribute.String("http.path", req.URL.Path),
	)
	req = req.WithContext(ctx)
	done := observability.TrackRemoteCall(labels.service, labels.operation)

	resp, err := t.underlyingTransport.RoundTrip(req)

	switch {
	case err != nil:
		done(observability.OutcomeNetworkError)
		observability.EndSpan(span, err)
		observability.Logger().DebugContext(ctx, "remote request failed",
			slog.String("service", labels.service),
			slog.String("operation", labels.operation),
			slog.String("error", err.Error()),
		)
		return nil, err
	case resp.StatusCode >= 400:
		done(observability.OutcomeRemoteError)
	default:
		done(observability.OutcomeOK)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	observability.EndSpan(span, nil)
	observability.Logger().DebugContext(ctx, "remote request",
		slog.String("service", labels.service),
		slog.String("operation", labels.operation),
		slog.Int("status", resp.StatusCode),
	)
	return resp, nil
}
