package secrets

import (
	"context"
	"fmt"

	"entgo.io/ent"

	entgen "github.com/volaticloud/pulse/internal/ent"
)

// ChannelSecretConfigPaths lists the dot-paths within a NotificationChannel's
// config JSON blob that hold sensitive material.
var ChannelSecretConfigPaths = []string{
	"webhook.signingKey",
	"webhook.headers.Authorization",
	"email.apiKey",
	"email.smtpPassword",
	"snmp.community",
	"mqtt.password",
}

// EncryptHook returns an ENT mutation hook that encrypts secret fields
// in the given JSON field before writing to the database.
// It should be registered AFTER validation hooks so validation sees plaintext.
func EncryptHook(fieldName string, paths []string) ent.Hook {
	return func(next ent.Mutator) ent.Mutator {
		return ent.MutateFunc(func(ctx context.Context, m ent.Mutation) (ent.Value, error) {
			if !Enabled() {
				return next.Mutate(ctx, m)
			}

			configValue, exists := m.Field(fieldName)
			if !exists {
				return next.Mutate(ctx, m)
			}

			config, ok := configValue.(map[string]interface{})
			if !ok || config == nil {
				return next.Mutate(ctx, m)
			}

			if err := EncryptFields(config, paths); err != nil {
				return nil, fmt.Errorf("secrets: encrypt %s: %w", fieldName, err)
			}

			// Set the encrypted config back on the mutation
			if err := m.SetField(fieldName, config); err != nil {
				return nil, fmt.Errorf("secrets: set %s: %w", fieldName, err)
			}

			return next.Mutate(ctx, m)
		})
	}
}

// RegisterDecryptInterceptors registers decrypt interceptors on the ENT client.
// Call this after creating the client and initializing encryption.
func RegisterDecryptInterceptors(client *entgen.Client) {
	client.NotificationChannel.Intercept(
		ent.InterceptFunc(func(next ent.Querier) ent.Querier {
			return ent.QuerierFunc(func(ctx context.Context, q ent.Query) (ent.Value, error) {
				result, err := next.Query(ctx, q)
				if err != nil || !Enabled() {
					return result, err
				}
				return decryptChannelResults(result)
			})
		}),
	)
}

func decryptChannelResults(result ent.Value) (ent.Value, error) {
	switch v := result.(type) {
	case []*entgen.NotificationChannel:
		for _, c := range v {
			if err := decryptSingleChannel(c); err != nil {
				return nil, err
			}
		}
	case *entgen.NotificationChannel:
		if v != nil {
			if err := decryptSingleChannel(v); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

func decryptSingleChannel(c *entgen.NotificationChannel) error {
	if c.Config != nil {
		if err := DecryptFields(c.Config, ChannelSecretConfigPaths); err != nil {
			return fmt.Errorf("secrets: decrypt channel %s config: %w", c.ID, err)
		}
	}
	return nil
}
