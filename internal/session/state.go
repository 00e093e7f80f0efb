package session

import (
	"fmt"
	"sync"
	"time"
)

// Phase represents the current stage of the upload-processing lifecycle.
// The string values are part of the device contract: the ESP32 polls
// /status and matches on them verbatim.
type Phase string

const (
	PhaseReady      Phase = "ready"
	PhaseProcessing Phase = "processing"
	PhaseSending    Phase = "sending_to_esp32"
)

// State is the process-wide session record. A single instance lives for the
// whole process; the upload pipeline and the explicit reset operation are its
// only writers.
type State struct {
	phase      Phase
	transcript string
	reply      string
	audio      []byte
	hasAudio   bool

	// Statistics
	uploadsBegun     uint64
	uploadsCommitted uint64
	uploadsFailed    uint64
	resets           uint64
	lastCommit       time.Time

	mu sync.RWMutex
}

// Info is a point-in-time snapshot of the session for status endpoints and
// logging. The audio buffer itself is not included, only its size.
type Info struct {
	Phase            Phase     `json:"phase"`
	Transcript       string    `json:"transcript"`
	Reply            string    `json:"reply"`
	HasAudio         bool      `json:"has_audio"`
	AudioBytes       int       `json:"audio_bytes"`
	UploadsBegun     uint64    `json:"uploads_begun"`
	UploadsCommitted uint64    `json:"uploads_committed"`
	UploadsFailed    uint64    `json:"uploads_failed"`
	Resets           uint64    `json:"resets"`
	LastCommit       time.Time `json:"last_commit,omitempty"`
}

// NewState creates a session record in the ready phase with no artifacts.
func NewState() *State {
	return &State{
		phase: PhaseReady,
	}
}

// Phase returns the current pipeline phase.
func (s *State) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.phase
}

// Begin marks the start of an upload pipeline run. Artifacts from the
// previous cycle stay in place until the new run commits or the session is
// reset.
func (s *State) Begin() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.phase = PhaseProcessing
	s.uploadsBegun++
}

// Commit stores the artifacts of a completed pipeline run and moves the
// session to the sending_to_esp32 phase. The PCM buffer is copied in.
// An empty buffer is rejected so has_audio can never refer to nothing, and
// a commit without a matching Begin is rejected as a programming error.
func (s *State) Commit(transcript, reply string, pcm []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseProcessing {
		return fmt.Errorf("commit in phase %q, expected %q", s.phase, PhaseProcessing)
	}

	if len(pcm) == 0 {
		return fmt.Errorf("cannot commit empty audio buffer")
	}

	s.transcript = transcript
	s.reply = reply
	s.audio = make([]byte, len(pcm))
	copy(s.audio, pcm)
	s.hasAudio = true
	s.phase = PhaseSending
	s.uploadsCommitted++
	s.lastCommit = time.Now()

	return nil
}

// Fail returns the session to the ready phase after a pipeline error. The
// artifacts of the last successful run are left untouched, so a failed run
// never serves partial audio.
func (s *State) Fail() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.phase = PhaseReady
	s.uploadsFailed++
}

// Reset clears every artifact and returns the session to the ready phase.
// Resetting an already-clean session is a no-op apart from the counter.
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.phase = PhaseReady
	s.transcript = ""
	s.reply = ""
	s.audio = nil
	s.hasAudio = false
	s.resets++
}

// Audio returns a copy of the last committed PCM buffer and whether one is
// present.
func (s *State) Audio() ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.hasAudio {
		return nil, false
	}

	out := make([]byte, len(s.audio))
	copy(out, s.audio)

	return out, true
}

// Snapshot returns the current session state for monitoring endpoints.
func (s *State) Snapshot() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Info{
		Phase:            s.phase,
		Transcript:       s.transcript,
		Reply:            s.reply,
		HasAudio:         s.hasAudio,
		AudioBytes:       len(s.audio),
		UploadsBegun:     s.uploadsBegun,
		UploadsCommitted: s.uploadsCommitted,
		UploadsFailed:    s.uploadsFailed,
		Resets:           s.resets,
		LastCommit:       s.lastCommit,
	}
}
