// Package enrich coordinates out-of-band media generation for messages that
// are already displayed, merging results back without disrupting the
// conversation.
package enrich

import (
	"context"
	"sync"

	"github.com/chronoslabs/chronos-engine/internal/domain"
	"github.com/chronoslabs/chronos-engine/internal/metrics"
	"github.com/chronoslabs/chronos-engine/internal/observability"
)

// Patcher merges partial updates into a message by id. The session store
// satisfies this; the orchestrator never touches message lists directly.
type Patcher interface {
	PatchMessage(ctx context.Context, id domain.SessionID, messageID domain.MessageID, patch domain.MessagePatch) error
}

// Orchestrator launches image enrichment requests keyed to a specific
// message and maintains the "current visual" pointer shown in the visual
// panel.
type Orchestrator struct {
	images domain.ImageGenerator
	store  Patcher
	met    *metrics.Metrics

	mu     sync.Mutex
	visual *domain.Message // distinct copy from the list entry
	wg     sync.WaitGroup
}

// NewOrchestrator creates an enrichment orchestrator. met may be nil.
func NewOrchestrator(images domain.ImageGenerator, store Patcher, met *metrics.Metrics) *Orchestrator {
	return &Orchestrator{images: images, store: store, met: met}
}

// SetVisual makes a copy of msg the current visual pointer target.
func (o *Orchestrator) SetVisual(msg *domain.Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if msg == nil {
		o.visual = nil
		return
	}
	mc := *msg
	o.visual = &mc
}

// CurrentVisual returns a copy of the current visual pointer target, or nil.
func (o *Orchestrator) CurrentVisual() *domain.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.visual == nil {
		return nil
	}
	mc := *o.visual
	return &mc
}

// Enrich launches an out-of-band image request for the message and returns
// immediately. The result is merged into whatever the session's message
// list is at resolution time; a failed enrichment is terminal.
func (o *Orchestrator) Enrich(ctx context.Context, sessionID domain.SessionID, messageID domain.MessageID, prompt string) {
	if o.met != nil {
		o.met.EnrichmentRequests.Inc()
	}
	// The request that triggered enrichment finishes long before the image
	// does; keep its log values but not its cancellation.
	ctx = context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.resolve(ctx, sessionID, messageID, prompt)
	}()
}

// Wait blocks until every launched enrichment has resolved.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

func (o *Orchestrator) resolve(ctx context.Context, sessionID domain.SessionID, messageID domain.MessageID, prompt string) {
	log := observability.LoggerFromContext(ctx).With(
		"session_id", sessionID,
		"message_id", messageID,
	)

	ref, err := o.images.GenerateImage(ctx, prompt)
	if err != nil {
		log.Warn("image generation failed", "error", err)
		ref = nil
	}

	pending := false
	patch := domain.MessagePatch{ImagePending: &pending}
	if ref != nil {
		patch.ImageRef = ref
		if o.met != nil {
			o.met.EnrichmentSuccesses.Inc()
		}
	} else if o.met != nil {
		o.met.EnrichmentFailures.Inc()
	}

	// The session may have moved on; the store locates the message by id
	// in the current list, and a vanished target is a silent discard.
	if err := o.store.PatchMessage(ctx, sessionID, messageID, patch); err != nil {
		log.Warn("enrichment merge skipped", "error", err)
	}

	// The visual pointer is a distinct copy of the list entry; both must
	// reflect the resolved state.
	o.mu.Lock()
	if o.visual != nil && o.visual.ID == messageID {
		o.visual.ImageRef = ref
		o.visual.ImagePending = false
	}
	o.mu.Unlock()

	log.Info("enrichment resolved", "image", ref != nil)
}
