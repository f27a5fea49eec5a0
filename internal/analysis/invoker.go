package analysis

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"google.golang.org/genai"
)

// GenerateRequest is one structured-output call: rendered prompt plus the
// schema descriptor the response must follow.
type GenerateRequest struct {
	Kind              Kind
	SystemInstruction string
	Prompt            string
	Schema            *genai.Schema
}

// Generator is the generative backend. It returns the raw JSON text of the
// model's answer. Implementations may wrap ErrBackendUnavailable or ErrUpstream
// to classify their failures; anything else is treated as an upstream error.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

var (
	analysisRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daybook_analysis_requests_total",
		Help: "Analysis attempts by kind and outcome.",
	}, []string{"kind", "outcome"})

	analysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "daybook_analysis_duration_seconds",
		Help:    "Latency of analysis attempts against the generative backend.",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
	}, []string{"kind"})
)

// Invoker runs one request/response cycle per call. It never retries; retry
// is a user action.
type Invoker struct {
	gen     Generator
	timeout time.Duration
}

// NewInvoker wires the backend in. A nil generator leaves the feature
// unconfigured and every Analyze call fails with ErrBackendUnavailable.
func NewInvoker(gen Generator, timeout time.Duration) *Invoker {
	return &Invoker{gen: gen, timeout: timeout}
}

// Enabled reports whether a backend is configured.
func (iv *Invoker) Enabled() bool {
	return iv != nil && iv.gen != nil
}

// Analyze renders the prompt for in, sends it once, and returns an Output with
// all six fields populated, or an error matching ErrBackendUnavailable,
// ErrSchemaViolation or ErrUpstream. Partial output is never returned.
func (iv *Invoker) Analyze(ctx context.Context, in Input) (Output, error) {
	kind := in.Kind()
	logger := zerolog.Ctx(ctx).With().Str("analysis_kind", string(kind)).Logger()

	if !iv.Enabled() {
		analysisRequests.WithLabelValues(string(kind), outcomeOf(ErrBackendUnavailable)).Inc()
		return Output{}, fmt.Errorf("%w: backend is not configured", ErrBackendUnavailable)
	}

	prompt := Render(in)

	if iv.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, iv.timeout)
		defer cancel()
	}

	logger.Info().Str("template", prompt.TemplateVersion).Msg("Sending prompt to generative backend")

	start := time.Now()
	raw, err := iv.gen.Generate(ctx, GenerateRequest{
		Kind:              kind,
		SystemInstruction: prompt.SystemInstruction,
		Prompt:            prompt.Text,
		Schema:            ResponseSchema(kind),
	})
	analysisDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())

	var out Output
	if err != nil {
		err = classifyBackendError(err)
	} else {
		out, err = DecodeOutput(raw)
	}

	analysisRequests.WithLabelValues(string(kind), outcomeOf(err)).Inc()

	if err != nil {
		logger.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("Analysis attempt failed")
		return Output{}, err
	}

	logger.Info().Dur("elapsed", time.Since(start)).Msg("Analysis attempt succeeded")
	return out, nil
}

// classifyBackendError folds an arbitrary backend failure into one of the
// three failure kinds.
func classifyBackendError(err error) error {
	switch {
	case errors.Is(err, ErrBackendUnavailable), errors.Is(err, ErrUpstream), errors.Is(err, ErrSchemaViolation):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	return fmt.Errorf("%w: %w", ErrUpstream, err)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "succeeded"
	case errors.Is(err, ErrBackendUnavailable):
		return "backend_unavailable"
	case errors.Is(err, ErrSchemaViolation):
		return "schema_violation"
	default:
		return "upstream_error"
	}
}
