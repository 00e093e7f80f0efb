// Package pipeline orchestrates one upload cycle: transcribe the uploaded
// clip, generate a reply, synthesize speech, and convert the result to the
// fixed device PCM format. Runs are serialized, every failure is tagged with
// the stage it happened in, and the session phase always returns to ready on
// error.
package pipeline
