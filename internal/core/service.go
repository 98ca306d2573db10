package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	blobcore "fieldreport/internal/blob/core"
	"fieldreport/internal/localstore"
	"fieldreport/internal/render"
	"fieldreport/pkg/domain"
)

// Service is the facade the transport layer talks to. It owns the per-session
// document bindings and routes every operation through the resolver,
// aggregator, and pipeline.
type Service struct {
	resolver   *Resolver
	aggregator *Aggregator
	pipeline   *Pipeline
	local      *localstore.Adapter

	logger   *slog.Logger
	metrics  MetricsRecorder
	tracer   Tracer
	auditRec AuditRecorder

	mu       sync.Mutex
	sessions map[string]DocumentBinding

	refreshMu sync.Mutex
	refreshFn func(formType FormType, techID string)
}

// Option configures optional service collaborators.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder sets the metrics sink.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithTracer sets the tracer.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithAuditRecorder sets the audit sink.
func WithAuditRecorder(rec AuditRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.auditRec = rec
		}
	}
}

// NewService wires the core components over the injected collaborators,
// constructed once at process start. blobs and renderer may be nil: a nil
// blob store skips archival, a nil renderer defaults to the built-in PDF
// writer.
func NewService(cloud DocumentStore, kv DeviceKV, blobs blobcore.Store, renderer render.Renderer, opts ...Option) *Service {
	s := &Service{
		logger:   slog.Default(),
		metrics:  noopMetrics{},
		tracer:   noopTracer{},
		auditRec: noopAudit{},
		sessions: make(map[string]DocumentBinding),
	}
	for _, opt := range opts {
		opt(s)
	}
	if renderer == nil {
		renderer = render.NewPDFRenderer()
	}
	s.local = localstore.New(kv, s.logger)
	s.resolver = NewResolver(cloud, s.local, s.logger)
	s.aggregator = NewAggregator(cloud, s.local, s.logger)
	s.pipeline = NewPipeline(s.resolver, blobs, renderer, s.logger)
	s.pipeline.ProfileLookup(s.lookupProfile)
	s.resolver.OnResolved(s.notifyRefresh)
	return s
}

// Resolver exposes the identity resolver, mainly for tests.
func (s *Service) Resolver() *Resolver { return s.resolver }

// Pipeline exposes the submission pipeline, mainly for tests.
func (s *Service) Pipeline() *Pipeline { return s.pipeline }

// OnHistoryRefresh registers the callback fired after every resolved save, so
// history views can refresh. Fired only after full resolution.
func (s *Service) OnHistoryRefresh(fn func(formType FormType, techID string)) {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	s.refreshFn = fn
}

func (s *Service) notifyRefresh(formType FormType, techID string) {
	s.refreshMu.Lock()
	fn := s.refreshFn
	s.refreshMu.Unlock()
	if fn != nil {
		fn(formType, techID)
	}
}

// OpenSession starts a fresh form session with no bound document.
func (s *Service) OpenSession() string {
	id := uuid.NewString()
	s.mu.Lock()
	s.sessions[id] = DocumentBinding{}
	s.mu.Unlock()
	return id
}

// ResetSession clears the session's binding: the next save starts a new
// logical document. Used for "new draft" and logout.
func (s *Service) ResetSession(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[sessionID]; !ok {
		return fmt.Errorf("unknown session %s", sessionID)
	}
	s.sessions[sessionID] = DocumentBinding{}
	return nil
}

// CloseSession discards the session.
func (s *Service) CloseSession(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

// Binding returns the session's current binding.
func (s *Service) Binding(sessionID string) (DocumentBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.sessions[sessionID]
	if !ok {
		return DocumentBinding{}, fmt.Errorf("unknown session %s", sessionID)
	}
	return b, nil
}

func (s *Service) setBinding(sessionID string, b DocumentBinding) {
	s.mu.Lock()
	if _, ok := s.sessions[sessionID]; ok {
		s.sessions[sessionID] = b
	}
	s.mu.Unlock()
}

// Save persists the record for the session, updating the session binding.
func (s *Service) Save(ctx context.Context, sessionID string, formType FormType, record FormRecord, techID string) (SaveOutcome, string, error) {
	ctx, finish := s.instrument(ctx, "save")
	binding, err := s.Binding(sessionID)
	if err != nil {
		finish(err)
		return "", "", err
	}
	newBinding, outcome, err := s.resolver.Save(ctx, formType, record, binding, techID)
	finish(err)
	if err != nil {
		s.audit(ctx, AuditEntry{Operation: "save", Status: AuditStatusError, TechID: techID, Detail: err.Error()})
		return "", "", err
	}
	s.setBinding(sessionID, newBinding)
	s.audit(ctx, AuditEntry{Operation: "save", Status: AuditStatusSuccess, TechID: techID, DocID: newBinding.ID(), Outcome: string(outcome)})
	return outcome, newBinding.ID(), nil
}

// History returns the merged, deduplicated, newest-first record view.
func (s *Service) History(ctx context.Context, formType FormType, techID string) ([]HistoryEntry, error) {
	ctx, finish := s.instrument(ctx, "history")
	entries, err := s.aggregator.List(ctx, formType, techID)
	finish(err)
	return entries, err
}

// DeleteFromHistory removes the record from whichever backend owns it and
// clears any session binding still pointing at it.
func (s *Service) DeleteFromHistory(ctx context.Context, formType FormType, id, techID string) error {
	ctx, finish := s.instrument(ctx, "delete")
	err := s.resolver.Delete(ctx, formType, id)
	finish(err)
	if err != nil {
		s.audit(ctx, AuditEntry{Operation: "delete", Status: AuditStatusError, DocID: id, TechID: techID, Detail: err.Error()})
		return err
	}

	s.mu.Lock()
	for sid, b := range s.sessions {
		if b.ID() == id {
			s.sessions[sid] = DocumentBinding{}
		}
	}
	s.mu.Unlock()

	s.notifyRefresh(formType, techID)
	s.audit(ctx, AuditEntry{Operation: "delete", Status: AuditStatusSuccess, DocID: id, TechID: techID})
	return nil
}

// Submit runs the submission pipeline for the session.
func (s *Service) Submit(ctx context.Context, sessionID string, formType FormType, record FormRecord, techID string) (Artifact, error) {
	ctx, finish := s.instrument(ctx, "submit")
	binding, err := s.Binding(sessionID)
	if err != nil {
		finish(err)
		return Artifact{}, err
	}
	newBinding, artifact, err := s.pipeline.Submit(ctx, formType, record, binding, techID)
	finish(err)
	if err != nil {
		s.audit(ctx, AuditEntry{Operation: "submit", Status: AuditStatusError, TechID: techID, Detail: err.Error()})
		return Artifact{}, err
	}
	s.setBinding(sessionID, newBinding)
	s.audit(ctx, AuditEntry{Operation: "submit", Status: AuditStatusSuccess, TechID: techID, DocID: newBinding.ID()})
	return artifact, nil
}

// SaveTechnicianProfile keeps the technician's profile in the local
// technicians collection. Profiles never leave the device.
func (s *Service) SaveTechnicianProfile(ctx context.Context, profile TechnicianProfile) error {
	_, finish := s.instrument(ctx, "save_profile")
	if profile.TechID == "" {
		err := ValidationError{Field: "techId", Reason: "technician id required"}
		finish(err)
		return err
	}
	raw, err := json.Marshal(profile)
	if err != nil {
		finish(err)
		return err
	}
	var data FormRecord
	if err := json.Unmarshal(raw, &data); err != nil {
		finish(err)
		return err
	}
	err = s.local.Upsert(domain.CollectionTechnicians, HistoryEntry{
		ID:   profile.TechID,
		Data: data,
	})
	finish(err)
	return err
}

// TechnicianProfile loads the technician's locally kept profile.
func (s *Service) TechnicianProfile(ctx context.Context, techID string) (TechnicianProfile, bool, error) {
	_, finish := s.instrument(ctx, "load_profile")
	entries, err := s.local.List(domain.CollectionTechnicians)
	if err != nil {
		finish(err)
		return TechnicianProfile{}, false, err
	}
	finish(nil)
	for _, entry := range entries {
		if entry.ID == techID {
			raw, err := json.Marshal(entry.Data)
			if err != nil {
				return TechnicianProfile{}, false, err
			}
			var profile TechnicianProfile
			if err := json.Unmarshal(raw, &profile); err != nil {
				return TechnicianProfile{}, false, err
			}
			return profile, true, nil
		}
	}
	return TechnicianProfile{}, false, nil
}

// lookupProfile is the best-effort lookup the submission pipeline uses to
// sign email drafts. Errors mean no signature, never a failed submission.
func (s *Service) lookupProfile(techID string) (TechnicianProfile, bool) {
	profile, ok, err := s.TechnicianProfile(context.Background(), techID)
	if err != nil || !ok {
		return TechnicianProfile{}, false
	}
	return profile, true
}
