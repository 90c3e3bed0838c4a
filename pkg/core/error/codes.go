package error

// Code represents a structured error code for categorizing errors
type Code string

const (
	// Generic codes
	CodeUnknown          Code = "UNKNOWN"
	CodeInternal         Code = "INTERNAL"
	CodeNotFound         Code = "NOT_FOUND"
	CodeInvalidInput     Code = "INVALID_INPUT"
	CodeInvalidOperation Code = "INVALID_OPERATION"

	// Synthesis
	CodeNoAudio         Code = "NO_AUDIO"
	CodeSynthesisFailed Code = "SYNTHESIS_FAILED"
	CodeVoiceCatalog    Code = "VOICE_CATALOG"

	// Playback and storage
	CodeAudioFormat   Code = "AUDIO_FORMAT"
	CodeAudioInit     Code = "AUDIO_INIT"
	CodeFileLocked    Code = "FILE_LOCKED"
	CodeDatabaseError Code = "DATABASE_ERROR"

	// Configuration
	CodeConfigError Code = "CONFIG_ERROR"
)

// String returns the string representation of the error code
func (c Code) String() string {
	return string(c)
}

// IsUserError reports whether the code describes bad user input rather than a fault
func (c Code) IsUserError() bool {
	switch c {
	case CodeInvalidInput, CodeNotFound, CodeNoAudio:
		return true
	default:
		return false
	}
}
