package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendFragment(t *testing.T) {
	tests := []struct {
		name     string
		buffer   string
		fragment string
		want     string
	}{
		{"empty buffer", "", "hello", "hello"},
		{"empty fragment", "hello", "", "hello"},
		{"adds a space", "hello", "world", "hello world"},
		{"buffer has trailing space", "hello ", "world", "hello world"},
		{"fragment has leading space", "hello", " world", "hello world"},
		{"sentence", "Hello.", "How are you?", "Hello. How are you?"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, appendFragment(tt.buffer, tt.fragment))
		})
	}
}

func TestCapturing(t *testing.T) {
	assert.Equal(t, "", capturing("", ""))
	assert.Equal(t, "hello wor", capturing("hello", "wor"))
	assert.Equal(t, "wor", capturing("", "wor"))
}
