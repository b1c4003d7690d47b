package classifier

// Intent is the command category extracted from an utterance
type Intent string

const (
	IntentList      Intent = "list"
	IntentCreate    Intent = "create"
	IntentAddTag    Intent = "add_tag"
	IntentRemoveTag Intent = "remove_tag"
	IntentListTags  Intent = "list_tags"
	IntentComplete  Intent = "complete"
	IntentDelete    Intent = "delete"
	IntentUnknown   Intent = "unknown"
)

// Source records how tags were extracted
type Source string

const (
	// SourceExplicit means tag names were stated verbatim ("tagged with work")
	SourceExplicit Source = "explicit"
	// SourceImplicit means tags were inferred from phrasing ("show my work tasks")
	SourceImplicit Source = "implicit"
)

// ExtractionResult is the structured output of classification.
// Confidence is always in [0, 1]; the orchestrator, not the classifier,
// enforces the confidence threshold.
type ExtractionResult struct {
	Intent      Intent   `json:"intent"`
	Tags        []string `json:"tags"`
	InvalidTags []string `json:"invalid_tags,omitempty"`
	Title       string   `json:"title,omitempty"`
	RemoveAll   bool     `json:"remove_all,omitempty"`
	Completed   *bool    `json:"completed,omitempty"`
	Confidence  float64  `json:"confidence"`
	Source      Source   `json:"source"`
	RawText     string   `json:"raw_text"`
}

// Classifier turns a raw utterance into an extraction result. Implementations
// must be deterministic for the same input so the confidence gate is testable.
type Classifier interface {
	Classify(text string) ExtractionResult
}
