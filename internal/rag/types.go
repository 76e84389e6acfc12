package rag

// Section identifies which part of a medication leaflet a fragment comes
// from. The vocabulary is fixed at ingestion time.
type Section string

const (
	SectionDosage            Section = "dosage"
	SectionWarnings          Section = "warnings"
	SectionDrugInteractions  Section = "drug_interactions"
	SectionContraindications Section = "contraindications"
	SectionSideEffects       Section = "side_effects"
	SectionIndications       Section = "indications"
	SectionPrecautions       Section = "precautions"
	SectionOverdosage        Section = "overdosage"
	SectionPatientInfo       Section = "patient_info"
)

// Sections lists the controlled vocabulary in a stable order.
var Sections = []Section{
	SectionDosage,
	SectionWarnings,
	SectionDrugInteractions,
	SectionContraindications,
	SectionSideEffects,
	SectionIndications,
	SectionPrecautions,
	SectionOverdosage,
	SectionPatientInfo,
}

// Fragment
// One section of one medication's leaflet, the atomic unit of retrieval.
// Immutable once stored; the whole index is rebuilt on re-ingestion.
type Fragment struct {
	ID       int64   `json:"id"`
	DrugName string  `json:"drugName"`
	Section  Section `json:"section"`
	Text     string  `json:"text"`
	Source   string  `json:"source"`
	SourceID string  `json:"sourceId"`
}

// RetrievalResult pairs a fragment with its similarity score for one query.
// Derived, never persisted.
type RetrievalResult struct {
	Fragment Fragment `json:"fragment"`
	Score    float32  `json:"score"`
}

// GenerationStatus tells the caller which of the three user-visible end
// states a query reached on the generation side.
type GenerationStatus string

const (
	// GenerationOK: fragments found and an answer was generated.
	GenerationOK GenerationStatus = "ok"
	// GenerationSkippedNoResults: retrieval returned nothing, so no
	// generation call was attempted.
	GenerationSkippedNoResults GenerationStatus = "skipped_no_results"
	// GenerationUnavailable: the generator probe failed before the call;
	// retrieval results are still populated.
	GenerationUnavailable GenerationStatus = "unavailable"
	// GenerationFailed: the generator was called and errored; the error text
	// is captured instead of an answer.
	GenerationFailed GenerationStatus = "failed"
)

// QueryContext is the full outcome of one question. Created fresh per
// interaction, discarded after rendering; no cross-query state.
type QueryContext struct {
	RawQuestion       string            `json:"rawQuestion"`
	EffectiveQuestion string            `json:"effectiveQuestion"`
	TopK              int               `json:"topK"`
	Results           []RetrievalResult `json:"results"`
	Answer            string            `json:"answer,omitempty"`
	GenerationStatus  GenerationStatus  `json:"generationStatus"`
	GenerationError   string            `json:"generationError,omitempty"`
}

// IndexInfo describes the stored fragment index.
type IndexInfo struct {
	Count      int64 `json:"count"`
	VectorSize int   `json:"vectorSize"`
}

// AskRequest is the payload of POST /ask.
type AskRequest struct {
	Question string `json:"question"`
	TopK     int    `json:"topK,omitempty"`
}
