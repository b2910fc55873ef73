package enum

// EnvelopeMsgType is the optional msg_type field of an ingest envelope.
type EnvelopeMsgType string

const (
	EnvelopeMsgTelemetry    EnvelopeMsgType = "telemetry"
	EnvelopeMsgHeartbeat    EnvelopeMsgType = "heartbeat"
	EnvelopeMsgShadow       EnvelopeMsgType = "shadow"
	EnvelopeMsgCommandResult EnvelopeMsgType = "command_result"
)

// Values returns all possible envelope message types.
func (EnvelopeMsgType) Values() []string {
	return []string{
		string(EnvelopeMsgTelemetry),
		string(EnvelopeMsgHeartbeat),
		string(EnvelopeMsgShadow),
		string(EnvelopeMsgCommandResult),
	}
}

// QuarantineReason is a stable, machine-readable ingest rejection reason.
type QuarantineReason string

const (
	ReasonSchemaInvalid       QuarantineReason = "schema_invalid"
	ReasonClockSkew           QuarantineReason = "clock_skew"
	ReasonUnknownDevice       QuarantineReason = "unknown_device"
	ReasonBadCredentials      QuarantineReason = "bad_credentials"
	ReasonDuplicateSeq        QuarantineReason = "duplicate_seq"
	ReasonUnsupportedEnvelope QuarantineReason = "unsupported_envelope_version"
	ReasonRateLimited         QuarantineReason = "rate_limited"
	ReasonPayloadTooLarge     QuarantineReason = "payload_too_large"
	ReasonPersistenceFailed   QuarantineReason = "persistence_failed"
)
