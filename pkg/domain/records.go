// Package domain defines the record shapes, identity conventions, and
// collaborator contracts shared by the fieldreport core.
package domain

import "strings"

// FormType identifies the concrete shape of a filled-in form.
type FormType string

const (
	// FormService identifies a service-call report.
	FormService FormType = "service"
	// FormPM identifies a preventive-maintenance checklist report.
	FormPM FormType = "pm"
)

// Collection names for persisted record sets. Local storage keeps one JSON
// array per collection; the cloud store keys documents by the same names.
const (
	CollectionServiceRecords = "service_records"
	CollectionPMRecords      = "pm_records"
	CollectionTechnicians    = "technicians"
)

// Collection returns the persistence collection backing the form type.
func (t FormType) Collection() string {
	if t == FormPM {
		return CollectionPMRecords
	}
	return CollectionServiceRecords
}

// Valid reports whether the form type is one of the known shapes.
func (t FormType) Valid() bool { return t == FormService || t == FormPM }

// Well-known field names shared by both form shapes. The core treats records
// as opaque payloads apart from these.
const (
	FieldTechID        = "techId"
	FieldShopName      = "shopName"
	FieldCustomerName  = "customerName"
	FieldCustSignature = "custSignature"
	FieldTechSignature = "techSignature"
)

// PrimarySignatureField names the signature that authorizes submission of the
// given form type: the customer signs off a service call, the technician signs
// off a PM checklist.
func (t FormType) PrimarySignatureField() string {
	if t == FormPM {
		return FieldTechSignature
	}
	return FieldCustSignature
}

// FormRecord is the flat field set of one filled-in form. Values are
// primitives: strings, bools, and nullable image-data references. The core
// never interprets fields beyond techId and the primary signature.
type FormRecord map[string]any

// TechID returns the owning technician id, or "" when unset.
func (r FormRecord) TechID() string {
	s, _ := r[FieldTechID].(string)
	return s
}

// StringField returns the named field as a string, or "" when absent or not a
// string.
func (r FormRecord) StringField(name string) string {
	s, _ := r[name].(string)
	return s
}

// HasSignature reports whether the named signature field carries a non-empty
// value.
func (r FormRecord) HasSignature(field string) bool {
	v, ok := r[field]
	if !ok || v == nil {
		return false
	}
	if s, isStr := v.(string); isStr {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// Clone returns a shallow copy; field values are primitives so a shallow copy
// is an independent record.
func (r FormRecord) Clone() FormRecord {
	if r == nil {
		return FormRecord{}
	}
	out := make(FormRecord, len(r)+1)
	for k, v := range r {
		out[k] = v
	}
	return out
}

// WithTechID returns a copy of the record with the owning technician id
// merged in. Every persisted record carries the id so either backend can be
// queried by owner.
func (r FormRecord) WithTechID(techID string) FormRecord {
	out := r.Clone()
	out[FieldTechID] = techID
	return out
}

// HistoryEntry is one persisted FormRecord viewed uniformly regardless of the
// backend it lives in. Timestamp is unix milliseconds: server-assigned for
// cloud documents, client clock for local drafts.
type HistoryEntry struct {
	ID        string     `json:"id"`
	Timestamp int64      `json:"timestamp"`
	Data      FormRecord `json:"data"`
}

// LocalDraftPrefix is the reserved id prefix naming device-only records that
// were never promoted to the cloud store. The prefix is the sole discriminant
// used to route update operations.
const LocalDraftPrefix = "local-"

// IsLocalDraftID reports whether the id names a local-only draft.
func IsLocalDraftID(id string) bool { return strings.HasPrefix(id, LocalDraftPrefix) }

// DocumentBinding is the session-held pointer to the logical document a form
// session saves to. A zero binding means no document exists yet; the first
// successful save binds it.
type DocumentBinding struct {
	DocID *string `json:"docId"`
}

// Bound reports whether the session already names a logical document.
func (b DocumentBinding) Bound() bool { return b.DocID != nil && *b.DocID != "" }

// ID returns the bound document id, or "" when unbound.
func (b DocumentBinding) ID() string {
	if b.DocID == nil {
		return ""
	}
	return *b.DocID
}

// BindTo returns a binding pointing at the given id.
func BindTo(id string) DocumentBinding { return DocumentBinding{DocID: &id} }

// SaveOutcome reports where a save landed.
type SaveOutcome string

const (
	// OutcomeCloud means the record reached the cloud document store.
	OutcomeCloud SaveOutcome = "success"
	// OutcomeLocal means the cloud was unavailable and the record was written
	// to device-local storage instead.
	OutcomeLocal SaveOutcome = "local"
)

// TechnicianProfile is the locally kept identity of a technician, merged into
// email drafts at submission time.
type TechnicianProfile struct {
	TechID string `json:"techId"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
}
