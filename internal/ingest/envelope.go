package ingest

import (
	"fmt"
	"time"

	"github.com/volaticloud/pulse/internal/enum"
)

// clockSkew bounds how far an envelope's ts may drift from the server
// clock before it is rejected, per spec.md §4.2.
const clockSkew = 180 * time.Second

// dedupWindow is how long a (device_id, seq) pair is remembered for
// duplicate detection, per spec.md §4.2.
const dedupWindow = 2 * time.Minute

// currentEnvelopeVersion is the only envelope_version Accept persists
// without rejection. Unknown versions reject with
// unsupported_envelope_version:<v> rather than being coerced.
const currentEnvelopeVersion = "1"

// maxPayloadBytes bounds the raw envelope body size; oversized bodies
// reject with payload_too_large before they are even unmarshalled.
const maxPayloadBytes = 64 * 1024

// Envelope is the wire shape of one ingest record, shared by the HTTP
// and MQTT paths. Field names follow spec.md §4.2's envelope contract
// verbatim.
type Envelope struct {
	Version  string                 `json:"version,omitempty"`
	TS       float64                `json:"ts"`
	DeviceID string                 `json:"device_id"`
	Seq      *int64                 `json:"seq,omitempty"`
	Metrics  map[string]interface{} `json:"metrics,omitempty"`
	MsgType  enum.EnvelopeMsgType   `json:"msg_type,omitempty"`
}

// rejection is a quarantine-worthy validation failure. The reason is
// the stable machine-readable code from internal/enum.QuarantineReason;
// detail carries the full verbose string Accept quarantines, e.g. with
// the offending version appended.
type rejection struct {
	reason enum.QuarantineReason
	detail string
}

func (r rejection) Error() string { return r.detail }

func reject(reason enum.QuarantineReason, detail string) rejection {
	return rejection{reason: reason, detail: detail}
}

// validate checks envelope-level structure and timing per spec.md
// §4.2. It does not check credentials, rate limits, or duplicate seq —
// those require state Accept supplies separately. pathDeviceID is the
// device_id asserted by the transport (URL path segment or MQTT topic
// segment); it must agree with the envelope body's device_id when the
// latter is present.
func validate(env Envelope, pathDeviceID string, now time.Time) error {
	version := env.Version
	if version == "" {
		version = currentEnvelopeVersion
	}
	if version != currentEnvelopeVersion {
		return reject(enum.ReasonUnsupportedEnvelope, fmt.Sprintf("unsupported_envelope_version:%s", version))
	}

	if env.TS == 0 {
		return reject(enum.ReasonSchemaInvalid, "missing ts")
	}
	ts := time.Unix(0, int64(env.TS*float64(time.Second)))
	if skew := now.Sub(ts); skew > clockSkew || skew < -clockSkew {
		return reject(enum.ReasonClockSkew, fmt.Sprintf("ts %s outside %s of server clock", ts.UTC(), clockSkew))
	}

	if env.DeviceID == "" {
		env.DeviceID = pathDeviceID
	}
	if env.DeviceID == "" || env.DeviceID != pathDeviceID {
		return reject(enum.ReasonSchemaInvalid, "device_id mismatch between envelope and transport identity")
	}

	if env.MsgType != "" {
		valid := false
		for _, v := range enum.EnvelopeMsgType("").Values() {
			if v == string(env.MsgType) {
				valid = true
				break
			}
		}
		if !valid {
			return reject(enum.ReasonSchemaInvalid, fmt.Sprintf("unknown msg_type %q", env.MsgType))
		}
	}

	return nil
}
