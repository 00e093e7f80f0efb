// Package server provides the HTTP surface of the voice relay: the upload
// endpoint that drives the pipeline, the raw PCM and WAV retrieval endpoints
// the ESP32 and browsers poll, status/clear for the device lifecycle, and
// the health and Prometheus endpoints for operators.
package server
