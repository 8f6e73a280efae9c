package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// TimestampLayout is how a record's capture time is shown next to the caption.
const TimestampLayout = "15:04:05"

// TranslationRecord is one completed original/translated caption pair.
// Records are immutable once appended to a history.
type TranslationRecord struct {
	ID         string    `json:"id"`
	Original   string    `json:"original"`
	Translated string    `json:"translated"`
	Timestamp  string    `json:"timestamp"`
	CapturedAt time.Time `json:"capturedAt"`
}

// NewTranslationRecord builds a record with a fresh time-ordered ID. Both texts
// are trimmed. A nil loc formats the timestamp in UTC.
func NewTranslationRecord(original, translated string, capturedAt time.Time, loc *time.Location) TranslationRecord {
	if loc == nil {
		loc = time.UTC
	}
	return TranslationRecord{
		ID:         newRecordID(),
		Original:   strings.TrimSpace(original),
		Translated: strings.TrimSpace(translated),
		Timestamp:  capturedAt.In(loc).Format(TimestampLayout),
		CapturedAt: capturedAt,
	}
}

func newRecordID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Status is the human-facing pipeline status line.
type Status int

const (
	StatusReady Status = iota
	StatusListening
	StatusTranslating
	StatusStopped
	StatusNoSpeech
	StatusPermissionDenied
	StatusTranslationError
	StatusUnsupported
	StatusRestartExhausted
)

var statusNames = map[Status]string{
	StatusReady:            "ready",
	StatusListening:        "listening",
	StatusTranslating:      "translating",
	StatusStopped:          "stopped",
	StatusNoSpeech:         "no-speech",
	StatusPermissionDenied: "permission-denied",
	StatusTranslationError: "translation-error",
	StatusUnsupported:      "unsupported",
	StatusRestartExhausted: "restart-exhausted",
}

var statusMessages = map[Status]string{
	StatusReady:            "Listo para comenzar",
	StatusListening:        "Escuchando...",
	StatusTranslating:      "Traduciendo...",
	StatusStopped:          "Detenido",
	StatusNoSpeech:         "No se detectó audio. Continúa escuchando...",
	StatusPermissionDenied: "Permiso de micrófono denegado",
	StatusTranslationError: "Error en traducción. Continúa escuchando...",
	StatusUnsupported:      "Tu navegador no soporta reconocimiento de voz",
	StatusRestartExhausted: "El reconocimiento de voz se detuvo. Intenta de nuevo",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Message is the text shown to the audience.
func (s Status) Message() string {
	return statusMessages[s]
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
