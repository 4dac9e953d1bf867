package tts

import (
	"os"
	"time"
)

// metadataFile is the descriptor looked up inside a voice directory
const metadataFile = "voice.json"

// VoiceMetadata describes a voice resource on disk
type VoiceMetadata struct {
	Name       string `json:"name"`
	Model      string `json:"model"`                 // Model file, relative to the voice directory
	SampleRate int    `json:"sample_rate,omitempty"` // Output sample rate in Hz
	Quality    string `json:"quality,omitempty"`     // x_low, low, medium, high
}

// VoiceHandle is the engine handle for a loaded voice.
// It keeps the model file open until the voice is unloaded.
type VoiceHandle struct {
	ID         string
	Name       string
	Location   string
	ModelPath  string
	SampleRate int
	Quality    string
	Size       int64
	LoadedAt   time.Time

	file *os.File
}

// Engine loads and releases voices for the catalog
type Engine interface {
	// Load opens the voice resources at location
	Load(location string) (*VoiceHandle, error)

	// Unload releases a handle returned by Load
	Unload(h *VoiceHandle) error

	// Loaded returns the number of voices currently loaded
	Loaded() int

	// Close unloads every voice
	Close() error
}
