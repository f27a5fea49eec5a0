package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// stubGenerator answers every call with a fixed response.
type stubGenerator struct {
	calls atomic.Int32
	last  GenerateRequest
	text  string
	err   error
	wait  bool
}

func (s *stubGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	s.calls.Add(1)
	s.last = req
	if s.wait {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return s.text, s.err
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return string(raw)
}

func TestAnalyze_ExpenseScenario(t *testing.T) {
	gen := &stubGenerator{text: mustJSON(t, validOutput())}
	iv := NewInvoker(gen, time.Second)

	in, err := Validate(KindExpense, RawInput{Expenses: "Rent 15000, groceries 6000, dining 3500", Income: "50000"})
	require.NoError(t, err)

	out, err := iv.Analyze(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, validOutput(), out)
	assert.Equal(t, int32(1), gen.calls.Load())

	assert.Equal(t, KindExpense, gen.last.Kind)
	assert.Contains(t, gen.last.Prompt, "50000")
	assert.Contains(t, gen.last.Prompt, "Rent 15000, groceries 6000, dining 3500")
	assert.Equal(t, SystemInstruction, gen.last.SystemInstruction)
	require.NotNil(t, gen.last.Schema)

	sections := Present(out)
	require.Len(t, sections, 6)
	for _, s := range sections {
		assert.True(t, s.Text != "" || len(s.Items) > 0, "section %s is empty", s.Key)
	}
}

func TestAnalyze_Unconfigured(t *testing.T) {
	iv := NewInvoker(nil, time.Second)
	assert.False(t, iv.Enabled())

	_, err := iv.Analyze(context.Background(), DiaryInput{DiaryEntries: strings.Repeat("x", 60)})
	require.ErrorIs(t, err, ErrBackendUnavailable)
}

func TestAnalyze_ErrorKinds(t *testing.T) {
	in := DiaryInput{DiaryEntries: strings.Repeat("x", 60)}

	tests := []struct {
		name string
		gen  *stubGenerator
		want error
	}{
		{name: "schema violation on prose", gen: &stubGenerator{text: "Sure! Here's your analysis."}, want: ErrSchemaViolation},
		{name: "schema violation on missing field", gen: &stubGenerator{text: `{"analysisSummary":"ok"}`}, want: ErrSchemaViolation},
		{name: "classified upstream passes through", gen: &stubGenerator{err: ErrUpstream}, want: ErrUpstream},
		{name: "classified unavailable passes through", gen: &stubGenerator{err: ErrBackendUnavailable}, want: ErrBackendUnavailable},
		{name: "unknown failure is upstream", gen: &stubGenerator{err: errors.New("quota exhausted")}, want: ErrUpstream},
		{name: "network failure is unavailable", gen: &stubGenerator{err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}}, want: ErrBackendUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := NewInvoker(tt.gen, time.Second).Analyze(context.Background(), in)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, Output{}, out, "partial output leaked")
			assert.Equal(t, int32(1), tt.gen.calls.Load(), "backend must be called exactly once")
		})
	}
}

func TestAnalyze_Timeout(t *testing.T) {
	gen := &stubGenerator{wait: true}
	iv := NewInvoker(gen, 20*time.Millisecond)

	_, err := iv.Analyze(context.Background(), DiaryInput{DiaryEntries: strings.Repeat("x", 60)})
	require.ErrorIs(t, err, ErrBackendUnavailable)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), gen.calls.Load())
}

func TestAnalyze_InvalidInputNeverReachesBackend(t *testing.T) {
	gen := &stubGenerator{text: mustJSON(t, validOutput())}

	_, err := Validate(KindDiary, RawInput{DiaryEntries: strings.Repeat("a", 49)})
	require.Error(t, err)

	// Validation fails before an Input exists, so nothing can be sent.
	assert.Equal(t, int32(0), gen.calls.Load())
}
