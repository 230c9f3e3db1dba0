package audio

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeSink records created sources and lets tests finish them manually.
type fakeSink struct {
	mu        sync.Mutex
	suspended bool
	resumes   int
	sources   []*fakeSource
}

func newFakeSink() *fakeSink {
	return &fakeSink{suspended: true}
}

func (s *fakeSink) Resume(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suspended = false
	s.resumes++
	return nil
}

func (s *fakeSink) NewSource(samples []float32, sampleRate int) (Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := &fakeSource{done: make(chan struct{})}
	s.sources = append(s.sources, src)
	return src, nil
}

type fakeSource struct {
	mu      sync.Mutex
	started bool
	stops   int
	done    chan struct{}
	once    sync.Once
}

func (f *fakeSource) Start() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = true
}

func (f *fakeSource) Stop() {
	f.mu.Lock()
	f.stops++
	f.mu.Unlock()
	f.once.Do(func() { close(f.done) })
}

// finish simulates natural end-of-buffer completion.
func (f *fakeSource) finish() {
	f.once.Do(func() { close(f.done) })
}

func (f *fakeSource) Done() <-chan struct{} { return f.done }

func payloadOf(n int) string {
	samples := make([]int16, n)
	return EncodePayload(samples)
}

func waitForCleared(t *testing.T, p *Player) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if p.ActiveID() == "" {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("active id never cleared, still %q", p.ActiveID())
}

func TestPlayStartsAndResumesLazily(t *testing.T) {
	sink := newFakeSink()
	opened := 0
	p := NewPlayer(DefaultSampleRate, func() (Sink, error) {
		opened++
		return sink, nil
	})

	if err := p.Play(context.Background(), "m1", payloadOf(10)); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if opened != 1 {
		t.Fatalf("expected sink opened once, got %d", opened)
	}
	if sink.resumes != 1 {
		t.Fatalf("expected suspended sink to be resumed, got %d resumes", sink.resumes)
	}
	if p.ActiveID() != "m1" {
		t.Fatalf("expected active id m1, got %q", p.ActiveID())
	}
	if !sink.sources[0].started {
		t.Fatal("source never started")
	}
}

func TestPlayToggleStopsSameMessage(t *testing.T) {
	sink := newFakeSink()
	p := NewPlayer(DefaultSampleRate, func() (Sink, error) { return sink, nil })

	if err := p.Play(context.Background(), "m1", payloadOf(10)); err != nil {
		t.Fatalf("first Play failed: %v", err)
	}
	if err := p.Play(context.Background(), "m1", payloadOf(10)); err != nil {
		t.Fatalf("second Play failed: %v", err)
	}

	if p.ActiveID() != "" {
		t.Fatalf("expected stopped state after toggle, active id %q", p.ActiveID())
	}
	if len(sink.sources) != 1 {
		t.Fatalf("toggle must not create a second source, got %d", len(sink.sources))
	}
	if sink.sources[0].stops == 0 {
		t.Fatal("toggle did not stop the active source")
	}
}

func TestPlayMutualExclusion(t *testing.T) {
	sink := newFakeSink()
	p := NewPlayer(DefaultSampleRate, func() (Sink, error) { return sink, nil })

	if err := p.Play(context.Background(), "a", payloadOf(10)); err != nil {
		t.Fatalf("Play a failed: %v", err)
	}
	if err := p.Play(context.Background(), "b", payloadOf(10)); err != nil {
		t.Fatalf("Play b failed: %v", err)
	}

	if p.ActiveID() != "b" {
		t.Fatalf("expected active id b, got %q", p.ActiveID())
	}
	a := sink.sources[0]
	if a.stops == 0 {
		t.Fatal("previous source was not torn down")
	}

	// a's completion (triggered by its teardown) must never clear b's state.
	time.Sleep(20 * time.Millisecond)
	if p.ActiveID() != "b" {
		t.Fatalf("stale completion cleared active id, got %q", p.ActiveID())
	}
}

func TestNaturalCompletionClearsOnce(t *testing.T) {
	sink := newFakeSink()
	p := NewPlayer(DefaultSampleRate, func() (Sink, error) { return sink, nil })

	if err := p.Play(context.Background(), "m1", payloadOf(10)); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	sink.sources[0].finish()
	waitForCleared(t, p)

	// Start another message; the finished source's callback already ran
	// and must not interfere.
	if err := p.Play(context.Background(), "m2", payloadOf(10)); err != nil {
		t.Fatalf("Play m2 failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	if p.ActiveID() != "m2" {
		t.Fatalf("expected active id m2, got %q", p.ActiveID())
	}
}

func TestStopIsIdempotent(t *testing.T) {
	sink := newFakeSink()
	p := NewPlayer(DefaultSampleRate, func() (Sink, error) { return sink, nil })

	p.Stop() // idle stop must not panic

	if err := p.Play(context.Background(), "m1", payloadOf(10)); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	p.Stop()
	p.Stop() // double stop tolerated

	if p.ActiveID() != "" {
		t.Fatalf("expected cleared state, got %q", p.ActiveID())
	}
}

func TestPlayDecodeErrorClearsState(t *testing.T) {
	sink := newFakeSink()
	p := NewPlayer(DefaultSampleRate, func() (Sink, error) { return sink, nil })

	if err := p.Play(context.Background(), "m1", "%%% not base64"); err == nil {
		t.Fatal("expected decode error")
	}
	if p.ActiveID() != "" {
		t.Fatalf("expected cleared state after decode error, got %q", p.ActiveID())
	}
}

func TestWallClockSinkCompletesNaturally(t *testing.T) {
	p := NewPlayer(1000, func() (Sink, error) { return NewWallClockSink(), nil })

	// 10 samples at 1 kHz: 10ms of audio.
	if err := p.Play(context.Background(), "m1", payloadOf(10)); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	waitForCleared(t, p)
}
