package stt

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrsingh-rishi/live-captions/types"
)

func TestStubRecognizer_EmitAndStop(t *testing.T) {
	rec := NewStubRecognizer(nil)
	c := newCollector()

	assert.False(t, rec.Emit(types.StartEvent()), "emit before start should report false")

	require.NoError(t, rec.Start(t.Context(), c.sink))
	assert.Equal(t, types.RecognitionStart, c.next(t).Kind)
	assert.True(t, rec.Running())
	assert.Equal(t, 1, rec.Starts())

	require.True(t, rec.Emit(types.ResultEvent(types.TranscriptEvent{Transcription: "hi", Final: true})))
	ev := c.next(t)
	require.Equal(t, types.RecognitionResult, ev.Kind)
	assert.Equal(t, "hi", ev.Results[0].Transcription)

	require.NoError(t, rec.Stop())
	assert.Equal(t, types.RecognitionEnd, c.next(t).Kind)
	assert.False(t, rec.Running())
	assert.NoError(t, rec.Stop())
}

func TestStubRecognizer_EmitEndEndsSession(t *testing.T) {
	rec := NewStubRecognizer(nil)
	c := newCollector()
	require.NoError(t, rec.Start(t.Context(), c.sink))
	c.next(t)

	require.True(t, rec.Emit(types.EndEvent()))
	assert.Equal(t, types.RecognitionEnd, c.next(t).Kind)
	assert.False(t, rec.Running())

	require.NoError(t, rec.Start(t.Context(), c.sink))
	assert.Equal(t, 2, rec.Starts())
}

func TestStubRecognizer_PlaysScript(t *testing.T) {
	rec := NewStubRecognizer(&StubRecognizerConfig{
		Script: []ScriptStep{
			{Delay: 5 * time.Millisecond, Event: types.ResultEvent(types.TranscriptEvent{Transcription: "one"})},
			{Delay: 5 * time.Millisecond, Event: types.ResultEvent(types.TranscriptEvent{Transcription: "two", Final: true})},
		},
	})
	c := newCollector()
	require.NoError(t, rec.Start(t.Context(), c.sink))

	assert.Equal(t, types.RecognitionStart, c.next(t).Kind)
	assert.Equal(t, "one", c.next(t).Results[0].Transcription)
	assert.Equal(t, "two", c.next(t).Results[0].Transcription)
}

func TestStubRecognizer_Unsupported(t *testing.T) {
	rec := NewStubRecognizer(&StubRecognizerConfig{Unsupported: true})
	assert.False(t, rec.Supported())
	assert.ErrorIs(t, rec.Start(t.Context(), newCollector().sink), ErrUnsupported)
}

func TestStubRecognizer_StartErr(t *testing.T) {
	boom := errors.New("boom")
	rec := NewStubRecognizer(&StubRecognizerConfig{StartErr: boom})
	assert.ErrorIs(t, rec.Start(t.Context(), newCollector().sink), boom)
	assert.Zero(t, rec.Starts())
}

func TestStubRecognizer_Feed(t *testing.T) {
	rec := NewStubRecognizer(nil)
	rec.Feed(make([]byte, 320))
	rec.Feed(make([]byte, 160))
	assert.Equal(t, 480, rec.FedBytes())
}

func TestNew_SelectsBackend(t *testing.T) {
	rec, err := New(Config{Backend: BackendStub}, EncodingLinear16, nil)
	require.NoError(t, err)
	assert.IsType(t, &StubRecognizer{}, rec)

	rec, err = New(Config{Backend: BackendDeepgram}, EncodingLinear16, nil)
	require.NoError(t, err)
	assert.False(t, rec.Supported())
	assert.ErrorIs(t, rec.Start(t.Context(), newCollector().sink), ErrUnsupported)

	rec, err = New(Config{Backend: BackendDeepgram, APIKey: "k"}, EncodingMulaw, nil)
	require.NoError(t, err)
	assert.IsType(t, &DeepgramRecognizer{}, rec)

	_, err = New(Config{Backend: "whisper"}, EncodingLinear16, nil)
	assert.Error(t, err)
}
