package main

import (
	"encoding/binary"
	"encoding/json"
	"log"
	"math"
	"net/http"
	"time"
)

// Standalone mock of the OpenAI-compatible API surface the relay consumes.
// Run it with `go run test_assistant_server.go` and point the service at it:
//
//	GROQ_API_KEY=test go run ./cmd/server
//	# configs/config.yaml: assistant.base_url: "http://localhost:9000"
//
// Transcription always recognizes the same Arabic question, chat always
// answers it, and speech synthesis returns a one-second 440 Hz tone as a
// 22.05 kHz mono WAV so the decode and resample path gets exercised.

func transcriptionsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing file part", http.StatusBadRequest)
		return
	}
	file.Close()

	log.Printf("transcription request: file=%s model=%s language=%s",
		header.Filename, r.FormValue("model"), r.FormValue("language"))

	time.Sleep(200 * time.Millisecond)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"text": "ما هو الطقس اليوم؟",
	})
}

func chatHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad request body", http.StatusBadRequest)
		return
	}

	log.Printf("chat request: model=%s messages=%d", req.Model, len(req.Messages))

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"id":      "chatcmpl-mock",
		"object":  "chat.completion",
		"created": time.Now().Unix(),
		"model":   req.Model,
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"message":       map[string]string{"role": "assistant", "content": "الطقس مشمس اليوم"},
				"finish_reason": "stop",
			},
		},
	})
}

func speechHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Model string `json:"model"`
		Input string `json:"input"`
		Voice string `json:"voice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad request body", http.StatusBadRequest)
		return
	}

	log.Printf("speech request: model=%s voice=%s input=%q", req.Model, req.Voice, req.Input)

	w.Header().Set("Content-Type", "audio/wav")
	w.Write(toneWAV(22050, time.Second, 440))
}

// toneWAV builds a mono 16-bit PCM WAV containing a sine tone.
func toneWAV(sampleRate int, duration time.Duration, freq float64) []byte {
	numSamples := int(float64(sampleRate) * duration.Seconds())
	dataSize := numSamples * 2

	buf := make([]byte, 44+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], 1) // mono
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)
	binary.LittleEndian.PutUint16(buf[34:36], 16)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))

	for i := 0; i < numSamples; i++ {
		sample := 0.4 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
		binary.LittleEndian.PutUint16(buf[44+i*2:], uint16(int16(sample*32767)))
	}

	return buf
}

func main() {
	http.HandleFunc("/audio/transcriptions", transcriptionsHandler)
	http.HandleFunc("/chat/completions", chatHandler)
	http.HandleFunc("/audio/speech", speechHandler)

	port := ":9000"
	log.Printf("Mock assistant API starting on %s", port)
	log.Printf("Point assistant.base_url at http://localhost%s", port)

	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
