package secrets_test

import (
	"context"
	"encoding/base64"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/volaticloud/pulse/internal/ent/enttest"
	_ "github.com/volaticloud/pulse/internal/ent/runtime"
	"github.com/volaticloud/pulse/internal/enum"
	"github.com/volaticloud/pulse/internal/secrets"
)

const testTenantID = "tenant-acme"

func testEncryptionKey() string {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return base64.StdEncoding.EncodeToString(key)
}

// TestChannelEncryptDecryptPipeline runs a NotificationChannel through the
// ENT hook -> DB -> interceptor pipeline and checks that the secret field
// reads back decrypted and the non-secret field reads back unchanged. It
// does not inspect the stored column directly.
func TestChannelEncryptDecryptPipeline(t *testing.T) {
	require.NoError(t, secrets.Init(testEncryptionKey()))
	t.Cleanup(func() { secrets.DefaultEncryptor = nil })

	client := enttest.Open(t, "sqlite3", "file:secrets_channel_pipeline?mode=memory&cache=shared&_fk=1")
	defer client.Close()

	secrets.RegisterDecryptInterceptors(client)

	ctx := context.Background()
	config := map[string]interface{}{
		"webhook": map[string]interface{}{
			"url":        "https://hooks.example.com/in",
			"signingKey": "whsec_12345",
		},
	}

	created, err := client.NotificationChannel.Create().
		SetTenantID(testTenantID).
		SetName("ops-webhook").
		SetType(enum.ChannelTypeWebhook).
		SetConfig(config).
		Save(ctx)
	require.NoError(t, err)

	// Query back — interceptor should decrypt transparently
	fetched, err := client.NotificationChannel.Get(ctx, created.ID)
	require.NoError(t, err)

	webhook := fetched.Config["webhook"].(map[string]interface{})
	assert.Equal(t, "https://hooks.example.com/in", webhook["url"], "non-secret field should be unchanged")
	assert.Equal(t, "whsec_12345", webhook["signingKey"], "secret field should be decrypted")
}

// TestChannelEncryptDecryptPipeline_KeyRotation tests that data encrypted with
// an old key can still be read after rotating to a new key.
func TestChannelEncryptDecryptPipeline_KeyRotation(t *testing.T) {
	oldKey := testEncryptionKey()

	// Phase 1: Encrypt with old key
	require.NoError(t, secrets.Init(oldKey))

	client := enttest.Open(t, "sqlite3", "file:secrets_rotation_pipeline?mode=memory&cache=shared&_fk=1")
	defer client.Close()

	secrets.RegisterDecryptInterceptors(client)
	ctx := context.Background()
	config := map[string]interface{}{
		"snmp": map[string]interface{}{
			"host":      "10.0.0.5:162",
			"community": "old-community-value",
		},
	}

	created, err := client.NotificationChannel.Create().
		SetTenantID(testTenantID).
		SetName("snmp-trap-sink").
		SetType(enum.ChannelTypeSNMP).
		SetConfig(config).
		Save(ctx)
	require.NoError(t, err)

	// Phase 2: Rotate to new key, keep old key for decryption
	newKey := make([]byte, 32)
	for i := range newKey {
		newKey[i] = byte(i + 50)
	}
	newKeyB64 := base64.StdEncoding.EncodeToString(newKey)

	require.NoError(t, secrets.Init(newKeyB64, oldKey))

	// Read data encrypted with old key — should still work
	fetched, err := client.NotificationChannel.Get(ctx, created.ID)
	require.NoError(t, err)

	snmp := fetched.Config["snmp"].(map[string]interface{})
	assert.Equal(t, "old-community-value", snmp["community"])

	// Update with new key — re-encrypts with new primary key
	_, err = client.NotificationChannel.UpdateOneID(created.ID).
		SetConfig(map[string]interface{}{
			"snmp": map[string]interface{}{
				"host":      "10.0.0.5:162",
				"community": "new-community-value",
			},
		}).
		Save(ctx)
	require.NoError(t, err)

	// Re-query to trigger decrypt interceptor
	refetched, err := client.NotificationChannel.Get(ctx, created.ID)
	require.NoError(t, err)

	snmp2 := refetched.Config["snmp"].(map[string]interface{})
	assert.Equal(t, "new-community-value", snmp2["community"])

	secrets.DefaultEncryptor = nil
}

// TestChannelEncryptDecryptPipeline_EmailCredentials covers the email channel's
// SMTP/API key secret paths alongside its non-secret fields.
func TestChannelEncryptDecryptPipeline_EmailCredentials(t *testing.T) {
	require.NoError(t, secrets.Init(testEncryptionKey()))
	t.Cleanup(func() { secrets.DefaultEncryptor = nil })

	client := enttest.Open(t, "sqlite3", "file:secrets_email_pipeline?mode=memory&cache=shared&_fk=1")
	defer client.Close()

	secrets.RegisterDecryptInterceptors(client)
	ctx := context.Background()

	config := map[string]interface{}{
		"email": map[string]interface{}{
			"from":   "alerts@example.com",
			"apiKey": "SG.abc123",
		},
	}

	created, err := client.NotificationChannel.Create().
		SetTenantID(testTenantID).
		SetName("ops-email").
		SetType(enum.ChannelTypeEmail).
		SetConfig(config).
		Save(ctx)
	require.NoError(t, err)

	fetched, err := client.NotificationChannel.Get(ctx, created.ID)
	require.NoError(t, err)

	email := fetched.Config["email"].(map[string]interface{})
	assert.Equal(t, "alerts@example.com", email["from"])
	assert.Equal(t, "SG.abc123", email["apiKey"])
}
