package audio

import (
	"bytes"
	"fmt"
)

// Format identifies the container of an encoded audio payload.
type Format int

const (
	FormatUnknown Format = iota
	FormatWAV
	FormatMP3
)

// Container magic numbers
var (
	riffMagic = []byte("RIFF")
	waveMagic = []byte("WAVE")
	id3Magic  = []byte("ID3")
)

// Minimum sizes needed to identify each container
const (
	riffHeaderSize = 12 // "RIFF" + size + "WAVE"
	mpegSyncSize   = 2  // first two bytes of an MPEG frame header
)

// DetectFormat sniffs the container of encoded audio bytes. WAV is identified
// by the RIFF/WAVE header, MP3 by an ID3v2 tag or an MPEG frame sync word
// (11 set bits). Anything else is FormatUnknown.
func DetectFormat(data []byte) Format {
	if len(data) >= riffHeaderSize &&
		bytes.Equal(data[0:4], riffMagic) &&
		bytes.Equal(data[8:12], waveMagic) {
		return FormatWAV
	}

	if len(data) >= len(id3Magic) && bytes.Equal(data[0:3], id3Magic) {
		return FormatMP3
	}

	if len(data) >= mpegSyncSize && data[0] == 0xFF && data[1]&0xE0 == 0xE0 {
		return FormatMP3
	}

	return FormatUnknown
}

// String returns a human-readable name for the format
func (f Format) String() string {
	switch f {
	case FormatWAV:
		return "wav"
	case FormatMP3:
		return "mp3"
	default:
		return fmt.Sprintf("unknown(%d)", int(f))
	}
}
