package prompt

import (
	"errors"
	"fmt"
	"testing"

	"github.com/manifoldco/promptui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAnswer(t *testing.T) {
	tests := []struct {
		answer     string
		defaultYes bool
		want       bool
	}{
		{"y", false, true},
		{"YES", false, true},
		{" true ", false, true},
		{"1", false, true},
		{"on", false, true},
		{"n", true, false},
		{"No", true, false},
		{"off", true, false},
		{"0", true, false},
		{"", true, true},
		{"", false, false},
		{"maybe", true, true},
		{"maybe", false, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%q/%v", tt.answer, tt.defaultYes), func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAnswer(tt.answer, tt.defaultYes))
		})
	}
}

func TestIsAborted(t *testing.T) {
	assert.True(t, IsAborted(ErrAborted))
	assert.True(t, IsAborted(promptui.ErrInterrupt))
	assert.True(t, IsAborted(fmt.Errorf("prompt: %w", promptui.ErrEOF)))
	assert.False(t, IsAborted(promptui.ErrAbort))
	assert.False(t, IsAborted(errors.New("other")))

	assert.NoError(t, wrapError(nil))
	assert.ErrorIs(t, wrapError(promptui.ErrInterrupt), ErrAborted)
}

func TestAssumeYes(t *testing.T) {
	var c Confirmer = AssumeYes{}
	ok, err := c.Confirm("Set quota?", false)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, c.Pause(""))
}

func TestScripted(t *testing.T) {
	s := NewScripted(true, false)
	s.Default = true

	for _, want := range []bool{true, false, true, true} {
		got, err := s.Confirm("q", false)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Len(t, s.Asked, 4)

	require.NoError(t, s.Pause(""))
	assert.Equal(t, 1, s.Pauses)

	s.Err = ErrAborted
	_, err := s.Confirm("q", true)
	assert.ErrorIs(t, err, ErrAborted)
}
