package audio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chronoslabs/chronos-engine/internal/observability"
)

// Sink is an audio output context. Implementations may be created in a
// suspended state; Resume must be called before scheduling a source.
type Sink interface {
	// Resume wakes a suspended output context. Calling it on a running
	// context is a no-op.
	Resume(ctx context.Context) error

	// NewSource prepares a playable source for the given normalized
	// samples. The source does not produce sound until Start is called.
	NewSource(samples []float32, sampleRate int) (Source, error)
}

// Source is one playback unit. Stop is idempotent. Done is closed when the
// source finishes, whether naturally or by Stop.
type Source interface {
	Start()
	Stop()
	Done() <-chan struct{}
}

// SinkOpener lazily creates the process-wide output context on first use.
type SinkOpener func() (Sink, error)

// Player enforces the single-active-source invariant: at most one source is
// audible at any instant, and starting a new one first fully tears down the
// previous one.
type Player struct {
	mu         sync.Mutex
	open       SinkOpener
	sink       Sink
	sampleRate int

	activeID string
	source   Source
	gen      uint64 // bumped on every teardown to disarm stale completion callbacks
}

// NewPlayer creates a playback controller. The sink is not opened until the
// first Play call.
func NewPlayer(sampleRate int, open SinkOpener) *Player {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &Player{open: open, sampleRate: sampleRate}
}

// ActiveID returns the id of the message currently playing, or "".
func (p *Player) ActiveID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.activeID
}

// Play decodes the payload and starts playback for messageID. Calling Play
// for the message already playing stops it instead (toggle-to-stop). Any
// other active source is torn down first. Errors leave playback state
// cleared.
func (p *Player) Play(ctx context.Context, messageID, payload string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.activeID == messageID {
		p.stopLocked()
		return nil
	}

	p.stopLocked()

	samples, err := DecodePayload(payload)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("audio decode failed",
			"message_id", messageID, "error", err)
		return err
	}

	if p.sink == nil {
		sink, err := p.open()
		if err != nil {
			observability.LoggerFromContext(ctx).Error("failed to open audio output",
				"error", err)
			return err
		}
		p.sink = sink
	}

	// Suspension is a recoverable precondition, not an error.
	if err := p.sink.Resume(ctx); err != nil {
		observability.LoggerFromContext(ctx).Error("failed to resume audio output",
			"error", err)
		return err
	}

	source, err := p.sink.NewSource(samples, p.sampleRate)
	if err != nil {
		observability.LoggerFromContext(ctx).Error("failed to create audio source",
			"message_id", messageID, "error", err)
		return err
	}

	p.source = source
	p.activeID = messageID
	gen := p.gen
	source.Start()

	go func() {
		<-source.Done()
		p.mu.Lock()
		defer p.mu.Unlock()
		// A manual stop or a newer source bumped the generation;
		// this completion no longer owns the active state.
		if p.gen == gen {
			p.activeID = ""
			p.source = nil
			p.gen++
		}
	}()

	return nil
}

// Stop tears down the active source, if any. Safe to call when idle and
// tolerant of a source that already stopped on its own.
func (p *Player) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *Player) stopLocked() {
	if p.source != nil {
		src := p.source
		p.source = nil
		p.gen++ // disarm the completion callback before stopping
		src.Stop()
	}
	p.activeID = ""
}

// ─────────────────────────────────────────────
// Wall-clock sink
// ─────────────────────────────────────────────

// wallClockSink is the default output context: it "plays" a buffer for its
// real duration on a timer. It starts suspended, mirroring autoplay policy.
type wallClockSink struct {
	mu        sync.Mutex
	suspended bool
}

// NewWallClockSink returns a Sink that paces playback on wall-clock time.
func NewWallClockSink() Sink {
	return &wallClockSink{suspended: true}
}

func (s *wallClockSink) Resume(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended = false
	return nil
}

func (s *wallClockSink) NewSource(samples []float32, sampleRate int) (Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended {
		return nil, fmt.Errorf("audio output context is suspended")
	}
	duration := time.Duration(len(samples)) * time.Second / time.Duration(sampleRate)
	return &timedSource{duration: duration, done: make(chan struct{})}, nil
}

type timedSource struct {
	duration time.Duration
	timer    *time.Timer
	done     chan struct{}
	once     sync.Once
}

func (t *timedSource) Start() {
	t.timer = time.AfterFunc(t.duration, func() {
		t.once.Do(func() { close(t.done) })
	})
}

func (t *timedSource) Stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.once.Do(func() { close(t.done) })
}

func (t *timedSource) Done() <-chan struct{} {
	return t.done
}
