package types

// TranscriptEvent is one recognizer result: a provisional (interim) or stable
// (final) text fragment for the utterance being spoken.
type TranscriptEvent struct {
	Transcription string
	Confidence    float64
	Final         bool
}

// RecognitionEventKind tags what a recognizer is reporting.
type RecognitionEventKind int

const (
	RecognitionStart RecognitionEventKind = iota
	RecognitionResult
	RecognitionError
	RecognitionEnd
)

func (k RecognitionEventKind) String() string {
	switch k {
	case RecognitionStart:
		return "start"
	case RecognitionResult:
		return "result"
	case RecognitionError:
		return "error"
	case RecognitionEnd:
		return "end"
	default:
		return "unknown"
	}
}

// ErrorCode distinguishes recognizer error conditions.
type ErrorCode string

const (
	ErrorNoSpeech    ErrorCode = "no-speech"
	ErrorNotAllowed  ErrorCode = "not-allowed"
	ErrorNetwork     ErrorCode = "network"
	ErrorAborted     ErrorCode = "aborted"
	ErrorUnsupported ErrorCode = "unsupported"
)

// RecognitionEvent is what a recognizer posts to its consumer. Results is set
// for RecognitionResult, Code and Err for RecognitionError.
type RecognitionEvent struct {
	Kind    RecognitionEventKind
	Results []TranscriptEvent
	Code    ErrorCode
	Err     error
}

func StartEvent() RecognitionEvent {
	return RecognitionEvent{Kind: RecognitionStart}
}

func EndEvent() RecognitionEvent {
	return RecognitionEvent{Kind: RecognitionEnd}
}

func ResultEvent(results ...TranscriptEvent) RecognitionEvent {
	return RecognitionEvent{Kind: RecognitionResult, Results: results}
}

func ErrorEvent(code ErrorCode, err error) RecognitionEvent {
	return RecognitionEvent{Kind: RecognitionError, Code: code, Err: err}
}
