package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/volaticloud/pulse/internal/enum"
)

func TestValidate_OK(t *testing.T) {
	now := time.Now()
	env := Envelope{TS: float64(now.Unix()), DeviceID: "dev-1", Version: "1"}
	assert.NoError(t, validate(env, "dev-1", now))
}

func TestValidate_DefaultsVersion(t *testing.T) {
	now := time.Now()
	env := Envelope{TS: float64(now.Unix()), DeviceID: "dev-1"}
	assert.NoError(t, validate(env, "dev-1", now))
}

func TestValidate_UnsupportedVersion(t *testing.T) {
	now := time.Now()
	env := Envelope{TS: float64(now.Unix()), DeviceID: "dev-1", Version: "2"}
	err := validate(env, "dev-1", now)
	rej, ok := err.(rejection)
	assert.True(t, ok)
	assert.Equal(t, enum.ReasonUnsupportedEnvelope, rej.reason)
	assert.Contains(t, rej.detail, "unsupported_envelope_version:2")
}

func TestValidate_MissingTS(t *testing.T) {
	now := time.Now()
	env := Envelope{DeviceID: "dev-1"}
	err := validate(env, "dev-1", now)
	rej, ok := err.(rejection)
	assert.True(t, ok)
	assert.Equal(t, enum.ReasonSchemaInvalid, rej.reason)
}

func TestValidate_ClockSkew(t *testing.T) {
	now := time.Now()
	skewed := now.Add(-10 * time.Minute)
	env := Envelope{TS: float64(skewed.Unix()), DeviceID: "dev-1"}
	err := validate(env, "dev-1", now)
	rej, ok := err.(rejection)
	assert.True(t, ok)
	assert.Equal(t, enum.ReasonClockSkew, rej.reason)
}

func TestValidate_DeviceIDMismatch(t *testing.T) {
	now := time.Now()
	env := Envelope{TS: float64(now.Unix()), DeviceID: "dev-2"}
	err := validate(env, "dev-1", now)
	rej, ok := err.(rejection)
	assert.True(t, ok)
	assert.Equal(t, enum.ReasonSchemaInvalid, rej.reason)
}

func TestValidate_UnknownMsgType(t *testing.T) {
	now := time.Now()
	env := Envelope{TS: float64(now.Unix()), DeviceID: "dev-1", MsgType: "bogus"}
	err := validate(env, "dev-1", now)
	rej, ok := err.(rejection)
	assert.True(t, ok)
	assert.Equal(t, enum.ReasonSchemaInvalid, rej.reason)
}

func TestValidate_KnownMsgTypes(t *testing.T) {
	now := time.Now()
	for _, mt := range []enum.EnvelopeMsgType{enum.EnvelopeMsgTelemetry, enum.EnvelopeMsgHeartbeat, enum.EnvelopeMsgShadow, enum.EnvelopeMsgCommandResult} {
		env := Envelope{TS: float64(now.Unix()), DeviceID: "dev-1", MsgType: mt}
		assert.NoError(t, validate(env, "dev-1", now))
	}
}
