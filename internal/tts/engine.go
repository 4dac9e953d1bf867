package tts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lexiqai/voice-catalog/internal/observability"
	"github.com/lexiqai/voice-catalog/internal/resilience"
	"github.com/lexiqai/voice-catalog/internal/voices"
)

const defaultSampleRate = 22050

var (
	// ErrEngineFull is returned when the loaded-voice limit is reached
	ErrEngineFull = errors.New("engine voice limit reached")
	// ErrUnknownHandle is returned when unloading a handle this engine does not hold
	ErrUnknownHandle = errors.New("handle not loaded by this engine")
	// ErrEmptyModel is returned for a zero-length model file
	ErrEmptyModel = errors.New("voice model is empty")
)

// FileEngine loads voices from the local filesystem.
//
// A resource location is either a directory holding voice.json and the
// model it names, or a model file with an optional "<model>.json" sibling.
type FileEngine struct {
	mu        sync.Mutex
	loaded    map[string]*VoiceHandle
	maxLoaded int
	breaker   *resilience.CircuitBreaker
	retry     *resilience.RetryConfig
	logger    zerolog.Logger
}

// EngineOption configures a FileEngine
type EngineOption func(*FileEngine)

// WithMaxLoaded caps the number of simultaneously loaded voices; 0 means no cap
func WithMaxLoaded(n int) EngineOption {
	return func(e *FileEngine) {
		e.maxLoaded = n
	}
}

// WithCircuitBreaker guards loads with cb
func WithCircuitBreaker(cb *resilience.CircuitBreaker) EngineOption {
	return func(e *FileEngine) {
		e.breaker = cb
	}
}

// WithRetry sets the retry policy for transient load errors
func WithRetry(cfg *resilience.RetryConfig) EngineOption {
	return func(e *FileEngine) {
		e.retry = cfg
	}
}

// WithLogger sets the engine logger
func WithLogger(logger zerolog.Logger) EngineOption {
	return func(e *FileEngine) {
		e.logger = logger
	}
}

// NewFileEngine creates a filesystem-backed engine
func NewFileEngine(opts ...EngineOption) *FileEngine {
	e := &FileEngine{
		loaded: make(map[string]*VoiceHandle),
		retry:  resilience.DefaultRetryConfig(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.breaker == nil {
		e.breaker = resilience.NewCircuitBreaker("voice-engine", 5, 30*time.Second)
	}
	e.logger = e.logger.With().Str("component", "engine").Logger()
	return e
}

// Register adapts Load to voices.RegisterFunc
func (e *FileEngine) Register(location string) (voices.Handle, error) {
	h, err := e.Load(location)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// Unregister adapts Unload to voices.UnregisterFunc
func (e *FileEngine) Unregister(h voices.Handle) error {
	vh, ok := h.(*VoiceHandle)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnknownHandle, h)
	}
	return e.Unload(vh)
}

// Load opens the voice at location. Transient I/O errors are retried and
// an exhausted retry sequence counts once against the circuit breaker.
// Errors tied to one voice (missing or empty files, bad metadata, a full
// engine) do not trip the breaker.
func (e *FileEngine) Load(location string) (*VoiceHandle, error) {
	var h *VoiceHandle
	err := e.breaker.CallCounting(func() error {
		return resilience.Retry(context.Background(), func() error {
			var err error
			h, err = e.load(location)
			return err
		}, e.retry, resilience.IsRetryable)
	}, resilience.IsRetryable)
	if err != nil {
		if resilience.IsRetryable(err) {
			observability.IncrementCircuitBreakerFailures(e.breaker.Name())
		}
		e.logger.Warn().Err(err).Str("location", location).Msg("Voice load failed")
		return nil, err
	}

	e.logger.Info().
		Str("voice_id", h.ID).
		Str("voice", h.Name).
		Str("model", h.ModelPath).
		Int64("bytes", h.Size).
		Msg("Voice loaded")
	return h, nil
}

func (e *FileEngine) load(location string) (*VoiceHandle, error) {
	info, err := os.Stat(location)
	if err != nil {
		return nil, classify(err)
	}

	meta, modelPath, err := resolveModel(location, info.IsDir())
	if err != nil {
		return nil, err
	}

	f, err := os.Open(modelPath)
	if err != nil {
		return nil, classify(err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, classify(err)
	}
	if stat.IsDir() {
		f.Close()
		return nil, fmt.Errorf("voice model %s is a directory", modelPath)
	}
	if stat.Size() == 0 {
		f.Close()
		return nil, fmt.Errorf("%s: %w", modelPath, ErrEmptyModel)
	}

	h := &VoiceHandle{
		ID:         uuid.NewString(),
		Name:       meta.Name,
		Location:   location,
		ModelPath:  modelPath,
		SampleRate: meta.SampleRate,
		Quality:    meta.Quality,
		Size:       stat.Size(),
		LoadedAt:   time.Now(),
		file:       f,
	}
	if h.SampleRate == 0 {
		h.SampleRate = defaultSampleRate
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.maxLoaded > 0 && len(e.loaded) >= e.maxLoaded {
		f.Close()
		return nil, fmt.Errorf("%w (%d)", ErrEngineFull, e.maxLoaded)
	}
	e.loaded[h.ID] = h
	return h, nil
}

// resolveModel reads the voice metadata and returns the model path
func resolveModel(location string, isDir bool) (VoiceMetadata, string, error) {
	if isDir {
		meta, err := readMetadata(filepath.Join(location, metadataFile))
		if err != nil {
			return meta, "", err
		}
		if meta.Model == "" {
			return meta, "", fmt.Errorf("%s: model not set", filepath.Join(location, metadataFile))
		}
		if meta.Name == "" {
			meta.Name = filepath.Base(location)
		}
		return meta, filepath.Join(location, meta.Model), nil
	}

	meta, err := readMetadata(location + ".json")
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return meta, "", err
	}
	if meta.Name == "" {
		meta.Name = strings.TrimSuffix(filepath.Base(location), filepath.Ext(location))
	}
	return meta, location, nil
}

func readMetadata(path string) (VoiceMetadata, error) {
	var meta VoiceMetadata
	data, err := os.ReadFile(path)
	if err != nil {
		return meta, classify(err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("parse %s: %w", path, err)
	}
	return meta, nil
}

// classify marks I/O errors other than missing files and permissions as transient
func classify(err error) error {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return err
	}
	return resilience.NewRetryableError(err)
}

// Unload closes the model file and forgets the handle
func (e *FileEngine) Unload(h *VoiceHandle) error {
	if h == nil {
		return ErrUnknownHandle
	}

	e.mu.Lock()
	if _, ok := e.loaded[h.ID]; !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownHandle, h.ID)
	}
	delete(e.loaded, h.ID)
	e.mu.Unlock()

	e.logger.Info().Str("voice_id", h.ID).Str("voice", h.Name).Msg("Voice unloaded")
	return h.file.Close()
}

// Loaded returns the number of voices currently loaded
func (e *FileEngine) Loaded() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.loaded)
}

// Close unloads every voice still loaded
func (e *FileEngine) Close() error {
	e.mu.Lock()
	handles := make([]*VoiceHandle, 0, len(e.loaded))
	for _, h := range e.loaded {
		handles = append(handles, h)
	}
	e.mu.Unlock()

	var errs []error
	for _, h := range handles {
		if err := e.Unload(h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Engine = (*FileEngine)(nil)
