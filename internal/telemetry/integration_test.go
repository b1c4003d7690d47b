package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newInstrumentedRouter wires the same otelmux setup cmd/server uses around
// a stub command endpoint, exporting spans in memory.
func newInstrumentedRouter() (*mux.Router, *tracetest.InMemoryExporter, *sdktrace.TracerProvider) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	r := mux.NewRouter()
	r.Use(otelmux.Middleware("tagtalk"))
	r.HandleFunc("/api/v1/commands", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"success":true}`))
	}).Methods("POST")

	return r, exporter, tp
}

func TestCommandRequestsAreTraced(t *testing.T) {
	r, exporter, tp := newInstrumentedRouter()

	req := httptest.NewRequest("POST", "/api/v1/commands", strings.NewReader(`{"text":"list my tags"}`))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) == 0 {
		t.Fatal("expected a span for the command request")
	}
	if !spans[0].SpanContext.TraceID().IsValid() {
		t.Error("span should carry a valid trace id")
	}
}

func TestIncomingTraceContextIsContinued(t *testing.T) {
	r, exporter, tp := newInstrumentedRouter()

	const incomingTraceID = "4bf92f3577b34da6a3ce929d0e0e4736"
	req := httptest.NewRequest("POST", "/api/v1/commands", strings.NewReader(`{"text":"list my tags"}`))
	req.Header.Set("traceparent", "00-"+incomingTraceID+"-00f067aa0ba902b7-01")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("flush: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) == 0 {
		t.Fatal("expected a span for the command request")
	}
	if got := spans[0].SpanContext.TraceID().String(); got != incomingTraceID {
		t.Errorf("trace id = %s, want the incoming %s", got, incomingTraceID)
	}
}
