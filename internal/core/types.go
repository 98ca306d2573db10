package core

import "fieldreport/pkg/domain"

type (
	FormType          = domain.FormType
	FormRecord        = domain.FormRecord
	HistoryEntry      = domain.HistoryEntry
	Document          = domain.Document
	DocumentBinding   = domain.DocumentBinding
	SaveOutcome       = domain.SaveOutcome
	DocumentStore     = domain.DocumentStore
	DeviceKV          = domain.DeviceKV
	TechnicianProfile = domain.TechnicianProfile
	LocalStoreError   = domain.LocalStoreError
	ValidationError   = domain.ValidationError
	RenderError       = domain.RenderError
)

const (
	FormService = domain.FormService
	FormPM      = domain.FormPM
)

const (
	OutcomeCloud = domain.OutcomeCloud
	OutcomeLocal = domain.OutcomeLocal
)

const LocalDraftPrefix = domain.LocalDraftPrefix
