// Package tr owns the process-wide tracer provider. Spans are only
// exported when OTEL_EXPORTER_OTLP_ENDPOINT is set; without it a noop
// provider stands in, so call sites never need a nil check.
package tr

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

var tp trace.TracerProvider

func init() {
	var err error
	tp, err = newTracerProvider("imgur-archive-hunter")
	if err != nil {
		panic("initializing tracer: " + err.Error())
	}
}

// Shutdown flushes any batched spans. A no-op when tracing is not
// exported.
func Shutdown() {
	sdk, ok := tp.(*sdktrace.TracerProvider)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	sdk.Shutdown(ctx)
}

func newTracerProvider(serviceName string) (trace.TracerProvider, error) {
	ctx := context.Background()

	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		return noop.NewTracerProvider(), nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("creating otel resource: %w", err)
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(endpoint)}

	// Collectors on loopback or private addresses rarely carry TLS.
	local, err := isLocalAddress(endpoint)
	if err != nil {
		return nil, fmt.Errorf("resolving otlp endpoint %q: %w", endpoint, err)
	}
	if local {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	if raw := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"); raw != "" {
		opts = append(opts, otlptracegrpc.WithHeaders(parseHeaders(raw)))
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating otlp trace grpc exporter: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)
	return provider, nil
}

// parseHeaders splits the OTEL_EXPORTER_OTLP_HEADERS comma-separated
// key=value list.
func parseHeaders(raw string) map[string]string {
	headers := map[string]string{}
	for _, pair := range strings.Split(raw, ",") {
		key, val, _ := strings.Cut(pair, "=")
		headers[key] = val
	}
	return headers
}

var hostPortRe = regexp.MustCompile(`^[\w.-]+:\d+$`)

// isLocalAddress reports whether every IP the endpoint's host resolves
// to is loopback or private. The endpoint may be a bare host:port or a
// full URL.
func isLocalAddress(endpoint string) (bool, error) {
	endpoint = strings.TrimSpace(endpoint)

	var hostname string
	switch {
	case hostPortRe.MatchString(endpoint):
		hostname, _, _ = strings.Cut(endpoint, ":")
	case strings.HasPrefix(endpoint, "http://"), strings.HasPrefix(endpoint, "https://"):
		u, err := url.Parse(endpoint)
		if err != nil {
			return false, err
		}
		hostname = u.Hostname()
	}

	ips, err := net.LookupIP(hostname)
	if err != nil {
		return false, err
	}
	for _, ip := range ips {
		if !ip.IsLoopback() && !ip.IsPrivate() {
			return false, nil
		}
	}
	return true, nil
}
