package audio

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"

	"github.com/chronoslabs/chronos-engine/internal/observability"
)

var (
	// ErrCaptureBusy is returned when Start is called while a capture
	// session is already open.
	ErrCaptureBusy = errors.New("capture session already active")

	// ErrNotRecording is returned when Stop is called without an open
	// capture session.
	ErrNotRecording = errors.New("no capture session active")

	// ErrPermissionDenied signals the input device refused access.
	ErrPermissionDenied = errors.New("microphone permission denied")

	// ErrNoAudio is returned when a capture session produced no data.
	ErrNoAudio = errors.New("no audio captured")
)

// InputDevice grants exclusive access to a microphone capture stream.
type InputDevice interface {
	Open(ctx context.Context) (InputStream, error)
}

// InputStream delivers raw s16le PCM chunks in arrival order. Close releases
// the hardware and causes the chunk channel to be closed.
type InputStream interface {
	Chunks() <-chan []byte
	Close() error
}

type captureState int

const (
	captureIdle captureState = iota
	captureRecording
	captureProcessing
)

// Recorder owns one microphone capture session at a time:
// idle -> recording -> processing -> idle.
type Recorder struct {
	mu         sync.Mutex
	device     InputDevice
	sampleRate int

	state  captureState
	stream InputStream
	chunks [][]byte
	done   chan struct{}
}

// NewRecorder creates a capture adapter over the given input device.
func NewRecorder(device InputDevice, sampleRate int) *Recorder {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Recorder{device: device, sampleRate: sampleRate}
}

// Recording reports whether a capture session is currently open.
func (r *Recorder) Recording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == captureRecording
}

// Start opens an exclusive capture session and begins buffering chunks.
// A denial leaves the recorder idle with no half-open session.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != captureIdle {
		return ErrCaptureBusy
	}
	if r.device == nil {
		return fmt.Errorf("no input device configured")
	}

	stream, err := r.device.Open(ctx)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn("capture start failed", "error", err)
		return fmt.Errorf("failed to open capture stream: %w", err)
	}

	r.state = captureRecording
	r.stream = stream
	r.chunks = nil
	r.done = make(chan struct{})

	go func(stream InputStream, done chan struct{}) {
		for chunk := range stream.Chunks() {
			buf := make([]byte, len(chunk))
			copy(buf, chunk)
			r.mu.Lock()
			r.chunks = append(r.chunks, buf)
			r.mu.Unlock()
		}
		close(done)
	}(stream, r.done)

	return nil
}

// Stop closes the capture session, releasing the input device immediately,
// and returns the buffered audio as a base64-encoded payload body. The
// capture is wrapped in a WAV container for transport and the container
// header is stripped, leaving only the PCM payload.
func (r *Recorder) Stop(ctx context.Context) (string, error) {
	r.mu.Lock()
	if r.state != captureRecording {
		r.mu.Unlock()
		return "", ErrNotRecording
	}
	r.state = captureProcessing
	stream := r.stream
	done := r.done
	r.mu.Unlock()

	// Release hardware before any downstream work.
	if err := stream.Close(); err != nil {
		observability.LoggerFromContext(ctx).Warn("capture stream close failed", "error", err)
	}
	<-done // drain remaining chunks

	r.mu.Lock()
	defer r.mu.Unlock()
	chunks := r.chunks
	r.chunks = nil
	r.stream = nil
	r.state = captureIdle

	var pcm []byte
	for _, c := range chunks {
		pcm = append(pcm, c...)
	}
	if len(pcm) == 0 {
		return "", ErrNoAudio
	}

	blob, err := EncodeWAV(pcm, r.sampleRate)
	if err != nil {
		return "", fmt.Errorf("failed to encode capture: %w", err)
	}
	body, err := StripWAVHeader(blob)
	if err != nil {
		return "", fmt.Errorf("failed to strip container header: %w", err)
	}

	return base64.StdEncoding.EncodeToString(body), nil
}
