// Package assistant wraps the OpenAI-compatible API the relay delegates to
// for speech recognition, chat completion and speech synthesis. One client
// talks to one base URL (Groq by default) with bounded request timeouts and
// a small retry budget.
package assistant
