package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecognitionEventKind_String(t *testing.T) {
	assert.Equal(t, "start", RecognitionStart.String())
	assert.Equal(t, "result", RecognitionResult.String())
	assert.Equal(t, "error", RecognitionError.String())
	assert.Equal(t, "end", RecognitionEnd.String())
	assert.Equal(t, "unknown", RecognitionEventKind(42).String())
}

func TestConstructors(t *testing.T) {
	ev := ResultEvent(TranscriptEvent{Transcription: "hi", Final: true})
	assert.Equal(t, RecognitionResult, ev.Kind)
	assert.Len(t, ev.Results, 1)

	boom := errors.New("denied")
	ev = ErrorEvent(ErrorNotAllowed, boom)
	assert.Equal(t, RecognitionError, ev.Kind)
	assert.Equal(t, ErrorNotAllowed, ev.Code)
	assert.Same(t, boom, ev.Err)

	assert.Equal(t, RecognitionStart, StartEvent().Kind)
	assert.Equal(t, RecognitionEnd, EndEvent().Kind)
}
