package orchestrator

// Channel buffer sizes
const (
	SuggestionBuffer = 8
	TranscriptBuffer = 32
)

// Preference keys with live side effects
const (
	PrefSuggestionsEnabled = "suggestions_enabled"
)
