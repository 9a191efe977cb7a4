package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWizardTransitions(t *testing.T) {
	cases := []struct {
		from WizardMode
		to   WizardMode
		ok   bool
	}{
		{ModeUpload, ModeProcessing, true},
		{ModeUpload, ModeManual, true},
		{ModeUpload, ModeReview, false},
		{ModeUpload, ModeClarify, false},
		{ModeProcessing, ModeReview, true},
		{ModeProcessing, ModeUpload, true},
		{ModeProcessing, ModeManual, false},
		{ModeReview, ModeClarify, true},
		{ModeReview, ModeUpload, false},
		{ModeReview, ModeManual, false},
		{ModeClarify, ModeReview, true},
		{ModeClarify, ModeUpload, false},
		{ModeManual, ModeUpload, false},
		{ModeManual, ModeReview, false},
		{ModeUpload, ModeUpload, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, IsValidTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestConfirmAllowedFrom(t *testing.T) {
	assert.True(t, ConfirmAllowedFrom(ModeReview))
	assert.True(t, ConfirmAllowedFrom(ModeManual))
	assert.True(t, ConfirmAllowedFrom(ModeClarify))
	assert.False(t, ConfirmAllowedFrom(ModeUpload))
	assert.False(t, ConfirmAllowedFrom(ModeProcessing))
}

func TestIsValidMode(t *testing.T) {
	for _, m := range []WizardMode{ModeUpload, ModeProcessing, ModeReview, ModeClarify, ModeManual} {
		assert.True(t, IsValidMode(m), string(m))
	}
	assert.False(t, IsValidMode("confirm"))
	assert.False(t, IsValidMode(""))
}

func TestValidNextModesCoverEveryMode(t *testing.T) {
	// every declared edge target is itself a valid mode
	for _, from := range []WizardMode{ModeUpload, ModeProcessing, ModeReview, ModeClarify, ModeManual} {
		for _, to := range ValidNextModes(from) {
			assert.True(t, IsValidMode(to), "%s -> %s", from, to)
		}
	}
	assert.Empty(t, ValidNextModes(ModeManual))
}
