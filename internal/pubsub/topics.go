package pubsub

import "fmt"

// Topic constants and helper functions for the ops live-status feed.
// Topics follow a hierarchical naming convention: {resource}:{id}

const (
	// prefixTenantOps is the per-tenant ops feed prefix.
	prefixTenantOps = "ops:tenant"
	// prefixDeviceOps is the per-device ops feed prefix.
	prefixDeviceOps = "ops:device"
)

// TenantOpsTopic returns a tenant's ops feed topic, the one
// internal/opsweb relays. No package in this repository publishes to it.
func TenantOpsTopic(tenantID string) string {
	return fmt.Sprintf("%s:%s", prefixTenantOps, tenantID)
}

// DeviceOpsTopic returns a single device's ops feed topic. No package in
// this repository publishes or subscribes to it.
func DeviceOpsTopic(tenantID, deviceID string) string {
	return fmt.Sprintf("%s:%s:%s", prefixDeviceOps, tenantID, deviceID)
}
