package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInitTracerExportsOnShutdown(t *testing.T) {
	var requests atomic.Int32
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/traces", r.URL.Path)
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	ctx := context.Background()
	tp, err := InitTracer(ctx, collector.URL+"/v1/traces")
	require.NoError(t, err)
	assert.Same(t, tp, otel.GetTracerProvider())

	_, span := otel.Tracer("tracing-test").Start(ctx, "capture")
	span.End()

	require.NoError(t, tp.Shutdown(ctx))
	assert.Positive(t, requests.Load())
}
