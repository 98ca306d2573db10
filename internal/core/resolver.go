// Package core implements the fieldreport save/history/submit pipeline: the
// document identity resolver that routes saves between the cloud document
// store and device-local storage, the history aggregator that merges both
// backends, and the submission pipeline that turns completed forms into
// delivered report artifacts.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"fieldreport/internal/localstore"
	"fieldreport/pkg/domain"
)

// Resolver decides where a save lands and owns the session's document
// binding lifecycle. The id prefix is the sole routing discriminant: ids
// carrying the local-draft marker are created (promoted) in the cloud store,
// all other ids are updated in place.
type Resolver struct {
	cloud   DocumentStore
	local   *localstore.Adapter
	logger  *slog.Logger
	clock   func() time.Time
	mintSeq atomic.Uint64

	// onResolved fires after a save has fully resolved, so history views can
	// refresh. Never before resolution.
	onResolved func(formType FormType, techID string)
}

// NewResolver constructs a Resolver over the two store adapters.
func NewResolver(cloud DocumentStore, local *localstore.Adapter, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{cloud: cloud, local: local, logger: logger, clock: time.Now}
}

// WithClock overrides the local timestamp source. Test hook.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.clock = now
	return r
}

// OnResolved registers the post-resolution refresh hook.
func (r *Resolver) OnResolved(fn func(formType FormType, techID string)) {
	r.onResolved = fn
}

// mintLocalID builds a fresh local-draft id: the reserved marker plus the
// current time, with a sequence suffix so two mints in the same millisecond
// stay distinguishable.
func (r *Resolver) mintLocalID() string {
	return fmt.Sprintf("%s%d-%d", domain.LocalDraftPrefix, r.clock().UnixMilli(), r.mintSeq.Add(1))
}

// Save persists the record and returns the binding that must be used for all
// subsequent saves in the session.
//
// An unbound session mints a local-draft id first, so every save is
// attributable to exactly one logical document from its very first attempt.
// Marker ids route to a cloud create; on success the cloud-assigned id
// replaces the draft id and the draft id is never reused. Non-marker ids
// route to a cloud update. Any cloud failure, whatever its cause, degrades to
// a local upsert under the current id; only a device-storage failure is
// returned as an error. A bound id that was first saved locally keeps its
// marker, so a later save with the cloud back attempts a new create rather
// than reconciling the stale local copy. That can orphan the local record;
// see DeleteFromHistory for the manual cleanup path.
func (r *Resolver) Save(ctx context.Context, formType FormType, record FormRecord, binding DocumentBinding, techID string) (DocumentBinding, SaveOutcome, error) {
	collection := formType.Collection()
	payload := record.WithTechID(techID)

	id := binding.ID()
	if !binding.Bound() {
		id = r.mintLocalID()
	}

	newBinding, outcome, err := r.resolve(ctx, collection, id, payload)
	if err != nil {
		return binding, "", err
	}
	if r.onResolved != nil {
		r.onResolved(formType, techID)
	}
	return newBinding, outcome, nil
}

func (r *Resolver) resolve(ctx context.Context, collection, id string, payload FormRecord) (DocumentBinding, SaveOutcome, error) {
	if domain.IsLocalDraftID(id) {
		doc, err := r.cloud.Create(ctx, collection, payload)
		if err == nil {
			return domain.BindTo(doc.ID), OutcomeCloud, nil
		}
		r.logger.Warn("cloud create unavailable, falling back to local draft",
			"collection", collection, "draft_id", id, "error", err)
	} else {
		err := r.cloud.Update(ctx, collection, id, payload)
		if err == nil {
			return domain.BindTo(id), OutcomeCloud, nil
		}
		r.logger.Warn("cloud update unavailable, falling back to local copy",
			"collection", collection, "doc_id", id, "error", err)
	}

	// Cloud unavailable: upsert locally under the current id. A cloud id can
	// end up holding a local fallback record here; accepted, not corrected.
	entry := HistoryEntry{ID: id, Timestamp: r.clock().UnixMilli(), Data: payload}
	if err := r.local.Upsert(collection, entry); err != nil {
		return DocumentBinding{}, "", err
	}
	return domain.BindTo(id), OutcomeLocal, nil
}

// Delete removes the record with the given id from whichever backend owns
// it: marker ids live locally, all others in the cloud store. A cloud delete
// also clears any local fallback copy written under the same id.
func (r *Resolver) Delete(ctx context.Context, formType FormType, id string) error {
	collection := formType.Collection()
	if domain.IsLocalDraftID(id) {
		_, err := r.local.Delete(collection, id)
		return err
	}
	if err := r.cloud.Delete(ctx, collection, id); err != nil {
		r.logger.Warn("cloud delete unavailable", "collection", collection, "doc_id", id, "error", err)
	}
	_, err := r.local.Delete(collection, id)
	return err
}
