// Package audio handles the output side of the voice pipeline: sniffing and
// decoding the encoded audio the speech synthesis API returns, downmixing to
// mono, linear-interpolation resampling to the fixed 16 kHz playback rate,
// and encoding to 16-bit little-endian PCM (raw for the ESP32, WAV-wrapped
// for browsers).
package audio
