package tracing

import (
	"io"

	"github.com/opentracing/opentracing-go"
	"github.com/sirupsen/logrus"
	jaegercfg "github.com/uber/jaeger-client-go/config"
)

// Bootstrap installs a jaeger tracer built from the standard JAEGER_*
// environment variables as the opentracing global tracer. When no agent is
// configured the tracer is a no-op, so calling this is always safe.
func Bootstrap(serviceName string) io.Closer {
	cfg, err := jaegercfg.FromEnv()
	if err != nil {
		logrus.Warnf("failed to load jaeger config from env: %v", err)
		return io.NopCloser(nil)
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = serviceName
	}

	tracer, closer, err := cfg.NewTracer()
	if err != nil {
		logrus.Warnf("failed to build jaeger tracer: %v", err)
		return io.NopCloser(nil)
	}
	opentracing.SetGlobalTracer(tracer)
	return closer
}
