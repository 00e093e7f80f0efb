package server

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iot-ahmad/smart-v1/internal/audio"
	"github.com/iot-ahmad/smart-v1/internal/config"
	"github.com/iot-ahmad/smart-v1/internal/metrics"
	"github.com/iot-ahmad/smart-v1/internal/pipeline"
	"github.com/iot-ahmad/smart-v1/internal/session"
)

//go:embed static/index.html
var operatorPage []byte

// HTTPServer provides the relay's HTTP endpoints
type HTTPServer struct {
	server  *http.Server
	handler http.Handler
	logger  *slog.Logger
	config  *config.Config
	state   *session.State
	runner  *pipeline.Runner
	metrics *metrics.Metrics

	serviceName    string
	serviceVersion string
	startTime      time.Time
}

// uploadResponse is the success envelope of POST /upload. The field names
// are part of the device contract.
type uploadResponse struct {
	Status   string `json:"status"`
	Text     string `json:"text"`
	Response string `json:"response"`
	Model    string `json:"model"`
	AudioURL string `json:"audio_url"`
}

// errorResponse is the error envelope of POST /upload.
type errorResponse struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

// NewHTTPServer creates the relay HTTP server with all routes configured
func NewHTTPServer(cfg *config.Config, logger *slog.Logger, state *session.State,
	runner *pipeline.Runner, m *metrics.Metrics, serviceName, serviceVersion string) *HTTPServer {

	h := &HTTPServer{
		logger:         logger,
		config:         cfg,
		state:          state,
		runner:         runner,
		metrics:        m,
		serviceName:    serviceName,
		serviceVersion: serviceVersion,
		startTime:      time.Now(),
	}

	mux := http.NewServeMux()
	h.setupRoutes(mux)
	h.handler = h.withCORS(mux)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.BindAddress, cfg.Server.Port),
		Handler:      h.handler,
		ReadTimeout:  cfg.Server.GetReadTimeout(),
		WriteTimeout: cfg.Server.GetWriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// setupRoutes configures the HTTP routes
func (h *HTTPServer) setupRoutes(mux *http.ServeMux) {
	// Device-facing endpoints
	mux.HandleFunc("/upload", h.withMetrics("/upload", h.handleUpload))
	mux.HandleFunc("/get-audio-stream", h.withMetrics("/get-audio-stream", h.handleAudioStream))
	mux.HandleFunc("/status", h.withMetrics("/status", h.handleStatus))
	mux.HandleFunc("/clear", h.withMetrics("/clear", h.handleClear))

	// Operator endpoints
	mux.HandleFunc("/get-audio-wav", h.withMetrics("/get-audio-wav", h.handleAudioWAV))
	mux.HandleFunc("/test-llm", h.withMetrics("/test-llm", h.handleTestLLM))
	mux.HandleFunc("/health", h.withMetrics("/health", h.handleHealth))
	mux.Handle("/metrics", promhttp.Handler())

	// Operator/test page
	mux.HandleFunc("/", h.withMetrics("/", h.handleRoot))
}

// Handler returns the full middleware-wrapped handler, used by tests.
func (h *HTTPServer) Handler() http.Handler {
	return h.handler
}

// withCORS allows cross-origin access from the operator page wherever it is
// hosted, mirroring the open policy the device deployment always ran with.
func (h *HTTPServer) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withMetrics wraps an HTTP handler with metrics collection
func (h *HTTPServer) withMetrics(endpoint string, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		ww := &responseWriter{ResponseWriter: w, statusCode: 200}

		handler(ww, r)

		duration := time.Since(startTime).Seconds()
		statusCode := fmt.Sprintf("%d", ww.statusCode)

		h.metrics.RecordHTTPRequest(r.Method, endpoint, statusCode, duration)

		if ww.statusCode >= 400 {
			errorType := "client_error"
			if ww.statusCode >= 500 {
				errorType = "server_error"
			}
			h.metrics.RecordHTTPError(r.Method, endpoint, errorType)
		}
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start starts the HTTP server
func (h *HTTPServer) Start() error {
	h.logger.Info("Starting HTTP server",
		slog.String("address", h.server.Addr),
	)

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP server...")

	return h.server.Shutdown(ctx)
}

// handleUpload implements POST /upload: the whole voice round-trip.
func (h *HTTPServer) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	requestID := uuid.NewString()

	r.Body = http.MaxBytesReader(w, r.Body, h.config.Server.MaxUploadBytes)

	if err := r.ParseMultipartForm(h.config.Server.MaxUploadBytes); err != nil {
		h.writeUploadError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, header, err := r.FormFile("audio")
	if err != nil {
		h.writeUploadError(w, http.StatusBadRequest, "no audio file supplied")
		return
	}
	defer file.Close()

	if header.Filename == "" {
		h.writeUploadError(w, http.StatusBadRequest, "empty filename")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeUploadError(w, http.StatusInternalServerError, "failed to read audio file")
		return
	}

	h.logger.Info("Upload received",
		slog.String("request_id", requestID),
		slog.String("filename", header.Filename),
		slog.Int("size_bytes", len(data)),
		slog.String("model_query", r.URL.Query().Get("model")),
	)

	result, err := h.runner.Run(r.Context(), pipeline.Upload{
		RequestID:  requestID,
		Data:       data,
		Filename:   header.Filename,
		ModelQuery: r.URL.Query().Get("model"),
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrNotConfigured) {
			h.writeUploadError(w, http.StatusInternalServerError, pipeline.ErrNotConfigured.Error())
			return
		}
		h.writeUploadError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.writeJSON(w, http.StatusOK, uploadResponse{
		Status:   "ok",
		Text:     result.Transcript,
		Response: result.Reply,
		Model:    result.ModelID,
		AudioURL: "/get-audio-stream",
	})
}

// handleAudioStream implements GET /get-audio-stream: the raw PCM buffer the
// ESP32 plays directly.
func (h *HTTPServer) handleAudioStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pcm, ok := h.state.Audio()
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "No audio available"})
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(pcm)))
	w.Write(pcm)
}

// handleAudioWAV implements GET /get-audio-wav: the same buffer wrapped in a
// WAV container so the operator page can play it.
func (h *HTTPServer) handleAudioWAV(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pcm, ok := h.state.Audio()
	if !ok {
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "No audio available"})
		return
	}

	wavData, err := audio.EncodeWAV(pcm, audio.TargetSampleRate)
	if err != nil {
		h.logger.Error("Failed to encode WAV", slog.String("error", err.Error()))
		http.Error(w, "Failed to encode WAV", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(wavData)))
	w.Write(wavData)
}

// handleStatus implements GET /status, the endpoint the device polls.
func (h *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"server":       "online",
		"esp32_status": string(h.state.Phase()),
	})
}

// handleClear implements POST /clear: reset the session.
func (h *HTTPServer) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.state.Reset()
	h.metrics.RecordReset()
	h.metrics.SetSessionPhase(string(h.state.Phase()))

	h.logger.Info("Session cleared")

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// handleTestLLM implements GET /test-llm, a connectivity probe against the
// chat completion API.
func (h *HTTPServer) handleTestLLM(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	reply, err := h.runner.Probe(r.Context())
	if err != nil {
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{
			Status: "error",
			Error:  err.Error(),
		})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"reply":  reply,
	})
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	info := h.state.Snapshot()

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": map[string]interface{}{
			"name":    h.serviceName,
			"version": h.serviceVersion,
		},
		"components": map[string]interface{}{
			"assistant": map[string]interface{}{
				"configured": h.runner.Configured(),
			},
			"session": map[string]interface{}{
				"phase":             info.Phase,
				"has_audio":         info.HasAudio,
				"audio_bytes":       info.AudioBytes,
				"uploads_begun":     info.UploadsBegun,
				"uploads_committed": info.UploadsCommitted,
				"uploads_failed":    info.UploadsFailed,
				"resets":            info.Resets,
			},
		},
	}

	h.writeJSON(w, http.StatusOK, health)
}

// handleRoot serves the embedded operator/test page on the exact root path.
func (h *HTTPServer) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(operatorPage)
}

// writeUploadError writes the upload error envelope with the given status.
func (h *HTTPServer) writeUploadError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, errorResponse{
		Status: "error",
		Error:  message,
	})
}

func (h *HTTPServer) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", slog.String("error", err.Error()))
	}
}
