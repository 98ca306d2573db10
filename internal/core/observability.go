package core

import (
	"context"
	"time"
)

// MetricsRecorder receives one observation per service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Tracer starts a span per service operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan is finished exactly once with the operation's terminal error.
type TraceSpan interface {
	End(err error)
}

// AuditStatus classifies an audit entry.
type AuditStatus string

const (
	AuditStatusSuccess AuditStatus = "success"
	AuditStatusError   AuditStatus = "error"
)

// AuditEntry describes one completed service operation for audit trails.
type AuditEntry struct {
	Operation string      `json:"operation"`
	Status    AuditStatus `json:"status"`
	DocID     string      `json:"doc_id,omitempty"`
	TechID    string      `json:"tech_id,omitempty"`
	Outcome   string      `json:"outcome,omitempty"`
	Detail    string      `json:"detail,omitempty"`
	At        time.Time   `json:"at"`
}

// AuditRecorder records audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, entry AuditEntry)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

type noopAudit struct{}

func (noopAudit) Record(context.Context, AuditEntry) {}

// instrument wraps an operation with metrics and tracing. The returned
// finish func must be called with the operation's terminal error.
func (s *Service) instrument(ctx context.Context, operation string) (context.Context, func(err error)) {
	started := time.Now()
	ctx, span := s.tracer.Start(ctx, operation)
	return ctx, func(err error) {
		span.End(err)
		s.metrics.Observe(ctx, operation, err == nil, time.Since(started))
	}
}

func (s *Service) audit(ctx context.Context, entry AuditEntry) {
	entry.At = time.Now().UTC()
	s.auditRec.Record(ctx, entry)
}
