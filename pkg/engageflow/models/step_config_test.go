package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStepConfig_Defaults(t *testing.T) {
	cfg, err := ParseStepConfig(StepNotification, "")
	assert.NoError(t, err)
	assert.Equal(t, RepeatOnce, cfg.RepeatOrDefault())
	assert.Equal(t, TimingImmediate, cfg.TimingOrDefault())
}

func TestParseStepConfig_UnknownStepType(t *testing.T) {
	_, err := ParseStepConfig(StepType("email"), "")
	assert.Error(t, err)
}

func TestParseStepConfig_InvalidJson(t *testing.T) {
	_, err := ParseStepConfig(StepNotification, "{not json")
	assert.Error(t, err)
}

func TestParseStepConfig_CustomRepeatNeedsCount(t *testing.T) {
	_, err := ParseStepConfig(StepNotification, `{"repeat":"custom"}`)
	assert.Error(t, err)

	cfg, err := ParseStepConfig(StepNotification, `{"repeat":"custom","repeatCount":4}`)
	assert.NoError(t, err)
	assert.Equal(t, 4, cfg.RepeatCount)
}

func TestParseStepConfig_UnknownRepeatPolicy(t *testing.T) {
	_, err := ParseStepConfig(StepNotification, `{"repeat":"forever"}`)
	assert.Error(t, err)
}

func TestParseStepConfig_UnknownSendTiming(t *testing.T) {
	_, err := ParseStepConfig(StepNotification, `{"sendTiming":"whenever"}`)
	assert.Error(t, err)
}

func TestParseStepConfig_NegativeDaysRejected(t *testing.T) {
	_, err := ParseStepConfig(StepWait, `{"days":-1}`)
	assert.Error(t, err)

	_, err = ParseStepConfig(StepNotification, `{"sendTiming":"delay_days","delayDays":-2}`)
	assert.Error(t, err)

	_, err = ParseStepConfig(StepNotification, `{"sendTiming":"after_form_submission","submissionDelayDays":-1}`)
	assert.Error(t, err)

	_, err = ParseStepConfig(StepNotification, `{"sendTiming":"before_subscription_end","daysBeforeEnd":-1}`)
	assert.Error(t, err)
}

func TestParseStepConfig_FormStepNeedsFormId(t *testing.T) {
	_, err := ParseStepConfig(StepForm, `{}`)
	assert.Error(t, err)

	cfg, err := ParseStepConfig(StepForm, `{"formId":9,"message":"please"}`)
	assert.NoError(t, err)
	assert.Equal(t, int64(9), cfg.FormID)
}

func TestParseStepConfig_AudienceTypes(t *testing.T) {
	for _, audience := range []string{"", "all", "packages", "clients"} {
		_, err := ParseStepConfig(StepAudience, `{"audienceType":"`+audience+`"}`)
		assert.NoError(t, err, "audienceType %q", audience)
	}
	_, err := ParseStepConfig(StepAudience, `{"audienceType":"everyone"}`)
	assert.Error(t, err)
}

func TestParseStepConfig_WaitZeroDaysAllowed(t *testing.T) {
	cfg, err := ParseStepConfig(StepWait, `{"days":0}`)
	assert.NoError(t, err)
	assert.Equal(t, 0, cfg.Days)
}
