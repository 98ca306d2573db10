package core

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	blobcore "fieldreport/internal/blob/core"
	"fieldreport/internal/render"
	"fieldreport/pkg/domain"
)

// Artifact is the deliverable produced by a submission: the rendered report
// plus a pre-filled email handoff the technician may use or ignore.
type Artifact struct {
	Filename    string     `json:"filename"`
	ContentType string     `json:"content_type"`
	Bytes       []byte     `json:"-"`
	Email       EmailDraft `json:"email"`
}

// EmailDraft is the offered (not forced) email-compose handoff.
type EmailDraft struct {
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	MailtoURL string `json:"mailto_url"`
}

// Pipeline turns a completed record into a delivered artifact while
// best-effort archiving it: render, upload, implicit save, handoff.
type Pipeline struct {
	resolver *Resolver
	blobs    blobcore.Store
	renderer render.Renderer
	logger   *slog.Logger
	clock    func() time.Time

	// onUploadFailure lets the service count swallowed upload errors.
	onUploadFailure func()

	// profile resolves the technician's locally kept profile for email drafts.
	profile func(techID string) (TechnicianProfile, bool)
}

// NewPipeline constructs a Pipeline. The blob store may be nil, in which case
// archival is skipped entirely (local-only mode).
func NewPipeline(resolver *Resolver, blobs blobcore.Store, renderer render.Renderer, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{resolver: resolver, blobs: blobs, renderer: renderer, logger: logger, clock: time.Now}
}

// WithClock overrides the timestamp source. Test hook.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.clock = now
	return p
}

// OnUploadFailure registers a hook fired when an archival upload is swallowed.
func (p *Pipeline) OnUploadFailure(fn func()) { p.onUploadFailure = fn }

// ProfileLookup registers the technician profile source used to sign email
// drafts.
func (p *Pipeline) ProfileLookup(fn func(techID string) (TechnicianProfile, bool)) {
	p.profile = fn
}

// Submit renders, archives, saves, and packages the record.
//
// The missing-signature precondition is checked before any I/O. Rendering
// failure is fatal. Everything after rendering is best-effort: a failed blob
// upload is logged and swallowed, and a save that degrades to local (or even
// fails outright against a full device store) does not change the submission
// outcome, because the primary deliverable is the returned artifact.
func (p *Pipeline) Submit(ctx context.Context, formType FormType, record FormRecord, binding DocumentBinding, techID string) (DocumentBinding, Artifact, error) {
	sigField := formType.PrimarySignatureField()
	if !record.HasSignature(sigField) {
		return binding, Artifact{}, ValidationError{Field: sigField, Reason: "authorizing signature required before submission"}
	}

	pdf, err := p.renderer.Render(formType, record)
	if err != nil {
		return binding, Artifact{}, RenderError{Err: err}
	}

	filename := fmt.Sprintf("%s-%d.pdf", render.SanitizeTitle(record.StringField(domain.FieldShopName)), p.clock().UnixMilli())
	if p.blobs != nil {
		key := fmt.Sprintf("reports/%s/%s", techID, filename)
		_, err := p.blobs.Put(ctx, key, bytes.NewReader(pdf), blobcore.PutOptions{
			ContentType: "application/pdf",
			Metadata:    map[string]string{"tech_id": techID, "form_type": string(formType)},
		})
		if err != nil {
			p.logger.Warn("report archival upload failed", "key", key, "error", err)
			if p.onUploadFailure != nil {
				p.onUploadFailure()
			}
		}
	}

	// Submission always performs an implicit save through the same path as a
	// manual save action.
	newBinding, outcome, err := p.resolver.Save(ctx, formType, record, binding, techID)
	if err != nil {
		p.logger.Warn("submission save failed, delivering artifact anyway", "error", err)
		newBinding = binding
	} else if outcome == OutcomeLocal {
		p.logger.Info("submission record kept locally, cloud unavailable", "doc_id", newBinding.ID())
	}

	return newBinding, Artifact{
		Filename:    filename,
		ContentType: "application/pdf",
		Bytes:       pdf,
		Email:       p.emailDraft(formType, record, techID),
	}, nil
}

func (p *Pipeline) emailDraft(formType FormType, record FormRecord, techID string) EmailDraft {
	kind := "Service Call"
	if formType == FormPM {
		kind = "Preventive Maintenance"
	}
	shop := record.StringField(domain.FieldShopName)
	if shop == "" {
		shop = "customer site"
	}
	subject := fmt.Sprintf("%s Report - %s", kind, shop)
	body := fmt.Sprintf("Attached is the %s report for %s.", kind, shop)
	if customer := record.StringField(domain.FieldCustomerName); customer != "" {
		body += fmt.Sprintf(" Customer contact: %s.", customer)
	}
	if p.profile != nil {
		if prof, ok := p.profile(techID); ok && prof.Name != "" {
			sig := prof.Name
			if prof.Email != "" {
				sig += ", " + prof.Email
			}
			if prof.Phone != "" {
				sig += ", " + prof.Phone
			}
			body += fmt.Sprintf(" Submitted by %s.", sig)
		}
	}
	q := url.Values{}
	q.Set("subject", subject)
	q.Set("body", body)
	return EmailDraft{
		Subject:   subject,
		Body:      body,
		MailtoURL: "mailto:?" + q.Encode(),
	}
}
