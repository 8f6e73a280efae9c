package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTranslationRecord_TrimsAndFormats(t *testing.T) {
	loc := time.FixedZone("CST", -6*60*60)
	captured := time.Date(2026, 3, 14, 20, 5, 9, 0, time.UTC)

	rec := NewTranslationRecord("  hello world ", "\thola mundo\n", captured, loc)

	assert.Equal(t, "hello world", rec.Original)
	assert.Equal(t, "hola mundo", rec.Translated)
	assert.Equal(t, "14:05:09", rec.Timestamp)
	assert.Equal(t, captured, rec.CapturedAt)
	assert.NotEmpty(t, rec.ID)
}

func TestNewTranslationRecord_UniqueIDs(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for range 100 {
		rec := NewTranslationRecord("a", "b", now, nil)
		require.False(t, seen[rec.ID], "duplicate id %s", rec.ID)
		seen[rec.ID] = true
	}
}

func TestStatus_Strings(t *testing.T) {
	tests := []struct {
		status  Status
		name    string
		message string
	}{
		{StatusReady, "ready", "Listo para comenzar"},
		{StatusListening, "listening", "Escuchando..."},
		{StatusTranslating, "translating", "Traduciendo..."},
		{StatusStopped, "stopped", "Detenido"},
		{StatusTranslationError, "translation-error", "Error en traducción. Continúa escuchando..."},
		{StatusPermissionDenied, "permission-denied", "Permiso de micrófono denegado"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.status.String())
			assert.Equal(t, tt.message, tt.status.Message())
		})
	}

	assert.Equal(t, "unknown", Status(99).String())
}

func TestStatus_MarshalsAsName(t *testing.T) {
	b, err := json.Marshal(map[string]Status{"status": StatusNoSpeech})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"no-speech"}`, string(b))
}
