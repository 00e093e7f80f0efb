// Package session holds the single process-wide record the voice relay
// shares between the upload pipeline and the retrieval endpoints: the
// pipeline phase, the last transcript and reply, and the last synthesized
// PCM buffer. All mutation goes through atomic begin/commit/fail/reset
// operations behind a mutex.
package session
