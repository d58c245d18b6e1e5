package constants

// JobStatus is the recognition backend's view of a submitted job.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusInProgress JobStatus = "IN_PROGRESS"
	JobStatusSucceeded  JobStatus = "SUCCEEDED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Terminal reports whether no further polling can change the status.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// PipelineState is the orchestrator's state for one run, recorded on extract_job rows.
type PipelineState string

const (
	StateSubmitted PipelineState = "SUBMITTED"
	StatePolling   PipelineState = "POLLING"
	StateResolved  PipelineState = "RESOLVED"
	StateExtracted PipelineState = "EXTRACTED"
	StateDone      PipelineState = "DONE"
	StateFailed    PipelineState = "FAILED" // absorbing
)

// Feature selects which analysis the backend runs.
type Feature string

const (
	FeatureText  Feature = "TEXT"  // line detection only
	FeatureForms Feature = "FORMS" // key/value analysis
)

// Variant is the caller-facing operation a run was started for.
type Variant string

const (
	VariantText         Variant = "text"
	VariantForm         Variant = "form"
	VariantFormEntities Variant = "form_entities"
)

// Feature returns the backend analysis a variant needs.
func (v Variant) Feature() Feature {
	if v == VariantText {
		return FeatureText
	}
	return FeatureForms
}

// ParseVariant accepts the variant names used on the HTTP and queue surfaces.
func ParseVariant(s string) (Variant, bool) {
	switch Variant(s) {
	case VariantText, VariantForm, VariantFormEntities:
		return Variant(s), true
	case "entities", "form-entities":
		return VariantFormEntities, true
	}
	return "", false
}
