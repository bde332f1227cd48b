package tracing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")

	p, err := Init(context.Background(), Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	assert.False(t, p.Enabled())

	_, span := p.Tracer().Start(context.Background(), "noop")
	span.End()
	assert.False(t, span.SpanContext().IsValid())
}

func TestInitWithEndpoint(t *testing.T) {
	for _, protocol := range []string{"http", "grpc"} {
		t.Run(protocol, func(t *testing.T) {
			p, err := Init(context.Background(), Config{
				Endpoint:    "localhost:4318",
				Protocol:    protocol,
				ServiceName: "hitcurl-test",
				Insecure:    true,
			})
			require.NoError(t, err)
			t.Cleanup(func() {
				// nothing listens on the endpoint
				ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
				defer cancel()
				_ = p.Shutdown(ctx)
			})

			assert.True(t, p.Enabled())
			_, span := p.Tracer().Start(context.Background(), "check")
			assert.True(t, span.SpanContext().IsValid())
			span.End()
		})
	}
}

func TestInitRejectsBadConfig(t *testing.T) {
	_, err := Init(context.Background(), Config{Endpoint: "localhost:4318", Protocol: "udp"})
	assert.ErrorContains(t, err, "unsupported OTLP protocol")

	_, err = Init(context.Background(), Config{Endpoint: "localhost:4318", SampleRate: 2})
	assert.ErrorContains(t, err, "sample rate")
}

func TestNilProvider(t *testing.T) {
	var p *Provider
	assert.False(t, p.Enabled())
	assert.NotNil(t, p.Tracer())
	assert.NoError(t, p.Shutdown(context.Background()))
}
