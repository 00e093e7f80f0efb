package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iot-ahmad/smart-v1/internal/assistant"
	"github.com/iot-ahmad/smart-v1/internal/audio"
	"github.com/iot-ahmad/smart-v1/internal/metrics"
	"github.com/iot-ahmad/smart-v1/internal/session"
)

// ErrNotConfigured indicates the assistant API credential is missing and the
// upload pipeline is disabled.
var ErrNotConfigured = errors.New("assistant API key not configured")

// Stage identifies which step of the pipeline an error came from.
type Stage string

const (
	StageTranscribe Stage = "transcribe"
	StageComplete   Stage = "complete"
	StageSynthesize Stage = "synthesize"
	StageResample   Stage = "resample"
	StageCommit     Stage = "commit"
)

// StageError wraps a pipeline failure with the stage it occurred in. The
// HTTP layer maps it to exactly one status/error pair.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Transcriber converts uploaded audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// Responder generates a reply to the transcribed text.
type Responder interface {
	Complete(ctx context.Context, model, userText string) (string, error)
}

// Synthesizer converts the reply text to encoded audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Prober verifies API connectivity with a minimal round-trip.
type Prober interface {
	Probe(ctx context.Context, model string) (string, error)
}

// Assistant bundles the collaborator operations the pipeline drives.
// *assistant.Client satisfies it; tests inject fakes.
type Assistant interface {
	Transcriber
	Responder
	Synthesizer
	Prober
}

// Upload is one device recording handed to the pipeline.
type Upload struct {
	RequestID  string
	Data       []byte
	Filename   string
	ModelQuery string
}

// Result is the outcome of a successful pipeline run.
type Result struct {
	Transcript string
	Reply      string
	ModelID    string
	PCM        []byte
}

// Runner drives the upload pipeline against the shared session. A mutex
// serializes runs so concurrent uploads cannot interleave writes to the
// session record; the single embedded client never needs more.
type Runner struct {
	assistant Assistant // nil when no credential is configured
	state     *session.State
	catalog   assistant.Catalog
	logger    *slog.Logger
	metrics   *metrics.Metrics

	runMu sync.Mutex
}

// NewRunner creates a pipeline runner. A nil assistant puts the runner in
// degraded mode: every Run fails with ErrNotConfigured without touching the
// session.
func NewRunner(a Assistant, state *session.State, catalog assistant.Catalog,
	logger *slog.Logger, m *metrics.Metrics) *Runner {

	return &Runner{
		assistant: a,
		state:     state,
		catalog:   catalog,
		logger:    logger,
		metrics:   m,
	}
}

// Configured reports whether the assistant client is available.
func (r *Runner) Configured() bool {
	return r.assistant != nil
}

// Run executes one upload cycle. On success the session holds the new
// artifacts and the result is returned; on any stage failure the session
// phase returns to ready, the previous artifacts stay in place, and a
// *StageError propagates.
func (r *Runner) Run(ctx context.Context, up Upload) (*Result, error) {
	if r.assistant == nil {
		return nil, ErrNotConfigured
	}

	r.runMu.Lock()
	defer r.runMu.Unlock()

	modelID, recognized := r.catalog.Resolve(up.ModelQuery)
	if !recognized {
		r.logger.Warn("Unrecognized model query, using fast model",
			slog.String("request_id", up.RequestID),
			slog.String("query", up.ModelQuery),
			slog.String("model", modelID),
		)
	}

	r.state.Begin()
	r.metrics.RecordUploadReceived()
	r.metrics.SetSessionPhase(string(r.state.Phase()))

	startTime := time.Now()

	stageStart := time.Now()
	transcript, err := r.assistant.Transcribe(ctx, up.Data, up.Filename)
	r.metrics.ObserveStageDuration(string(StageTranscribe), time.Since(stageStart).Seconds())
	if err != nil {
		return nil, r.fail(up.RequestID, StageTranscribe, err)
	}

	stageStart = time.Now()
	reply, err := r.assistant.Complete(ctx, modelID, transcript)
	r.metrics.ObserveStageDuration(string(StageComplete), time.Since(stageStart).Seconds())
	if err != nil {
		return nil, r.fail(up.RequestID, StageComplete, err)
	}

	stageStart = time.Now()
	encoded, err := r.assistant.Synthesize(ctx, reply)
	r.metrics.ObserveStageDuration(string(StageSynthesize), time.Since(stageStart).Seconds())
	if err != nil {
		return nil, r.fail(up.RequestID, StageSynthesize, err)
	}

	pcm, err := r.convert(encoded)
	if err != nil {
		return nil, r.fail(up.RequestID, StageResample, err)
	}

	if err := r.state.Commit(transcript, reply, pcm); err != nil {
		return nil, r.fail(up.RequestID, StageCommit, err)
	}

	r.metrics.RecordUploadSucceeded(len(pcm))
	r.metrics.SetSessionPhase(string(r.state.Phase()))

	r.logger.Info("Upload pipeline completed",
		slog.String("request_id", up.RequestID),
		slog.String("model", modelID),
		slog.Int("transcript_chars", len(transcript)),
		slog.Int("reply_chars", len(reply)),
		slog.Int("pcm_bytes", len(pcm)),
		slog.Duration("pcm_duration", audio.PCMDuration(pcm, audio.TargetSampleRate)),
		slog.Duration("total_duration", time.Since(startTime)),
	)

	return &Result{
		Transcript: transcript,
		Reply:      reply,
		ModelID:    modelID,
		PCM:        pcm,
	}, nil
}

// Probe checks collaborator connectivity using the fast model.
func (r *Runner) Probe(ctx context.Context) (string, error) {
	if r.assistant == nil {
		return "", ErrNotConfigured
	}

	return r.assistant.Probe(ctx, r.catalog.Fast)
}

// convert decodes the synthesized audio and resamples it to the device PCM
// format, timed as one local stage.
func (r *Runner) convert(encoded []byte) ([]byte, error) {
	startTime := time.Now()
	defer func() {
		r.metrics.ObserveStageDuration(string(StageResample), time.Since(startTime).Seconds())
	}()

	samples, channels, sampleRate, err := audio.Decode(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode synthesized audio: %w", err)
	}

	pcm, err := audio.ToTargetPCM(samples, channels, sampleRate)
	if err != nil {
		return nil, err
	}

	if len(pcm) == 0 {
		return nil, fmt.Errorf("synthesized audio decoded to zero samples")
	}

	return pcm, nil
}

// fail records the stage failure, resets the session phase and wraps the
// error with its stage.
func (r *Runner) fail(requestID string, stage Stage, err error) error {
	r.state.Fail()
	r.metrics.RecordUploadFailed(string(stage))
	r.metrics.SetSessionPhase(string(r.state.Phase()))

	r.logger.Error("Upload pipeline failed",
		slog.String("request_id", requestID),
		slog.String("stage", string(stage)),
		slog.String("error", err.Error()),
	)

	return &StageError{Stage: stage, Err: err}
}
