package channel

import (
	"context"
	"fmt"

	"github.com/k-sone/snmpgo"
)

// SNMPConfig holds a snmp channel's per-tenant configuration.
type SNMPConfig struct {
	Address   string
	Community string
	OIDPrefix string
}

// SNMPChannel sends the alert as an SNMPv2c TRAP with two varbinds
// under the tenant-configured OID prefix: the message subject at
// <prefix>.1 and the body at <prefix>.2. Message metadata is not sent.
type SNMPChannel struct {
	cfg SNMPConfig
}

// NewSNMPChannel constructs an SNMPChannel.
func NewSNMPChannel(cfg SNMPConfig) (*SNMPChannel, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("snmp channel: address is required")
	}
	if cfg.OIDPrefix == "" {
		return nil, fmt.Errorf("snmp channel: oid prefix is required")
	}
	return &SNMPChannel{cfg: cfg}, nil
}

// Type implements Channel.
func (c *SNMPChannel) Type() Type { return TypeSNMP }

// Send implements Channel.
func (c *SNMPChannel) Send(ctx context.Context, msg Message) error {
	snmp, err := snmpgo.NewSNMP(snmpgo.SNMPArgs{
		Version:   snmpgo.V2c,
		Address:   c.cfg.Address,
		Retries:   1,
		Community: c.cfg.Community,
	})
	if err != nil {
		return Permanent(fmt.Errorf("snmp channel: configure session: %w", err))
	}
	defer snmp.Close()

	varBinds, err := c.buildVarBinds(msg)
	if err != nil {
		return Permanent(fmt.Errorf("snmp channel: build varbinds: %w", err))
	}

	pdu := snmpgo.NewPDU(snmpgo.V2c, snmpgo.SNMPTrapV2, varBinds)
	if err := snmp.V2Trap(pdu); err != nil {
		return fmt.Errorf("snmp channel: send trap: %w", err)
	}
	return nil
}

// Test implements Channel.
func (c *SNMPChannel) Test(ctx context.Context, recipient string) error {
	return c.Send(ctx, Message{
		Subject: "Pulse notification channel test",
		Body:    "This SNMP channel is configured correctly.",
		Metadata: map[string]interface{}{
			"test": true,
		},
	})
}

func (c *SNMPChannel) buildVarBinds(msg Message) (snmpgo.VarBinds, error) {
	subjectOid, err := snmpgo.NewOid(c.cfg.OIDPrefix + ".1")
	if err != nil {
		return nil, fmt.Errorf("subject oid: %w", err)
	}
	bodyOid, err := snmpgo.NewOid(c.cfg.OIDPrefix + ".2")
	if err != nil {
		return nil, fmt.Errorf("body oid: %w", err)
	}

	return snmpgo.VarBinds{
		snmpgo.NewVarBind(subjectOid, snmpgo.NewOctetString([]byte(msg.Subject))),
		snmpgo.NewVarBind(bodyOid, snmpgo.NewOctetString([]byte(msg.Body))),
	}, nil
}
