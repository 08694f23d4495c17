package config

import (
	"os"
	"strings"
	"time"
)

// PublishSyncEvents enables the accounting.sync.completed Pub/Sub event.
//
// Set via env:
// - ACCOUNTING_SYNC_PUBLISH_EVENTS=true
func PublishSyncEvents() bool {
	return envBool("ACCOUNTING_SYNC_PUBLISH_EVENTS", false)
}

// SyncLockEnabled guards each integration with a redis lock for the length of a sync.
// Defaults to on; ACCOUNTING_SYNC_LOCK=false disables it.
func SyncLockEnabled() bool {
	return envBool("ACCOUNTING_SYNC_LOCK", true)
}

// ProviderTimeout bounds one QuickBooks/Xero HTTP call.
// ACCOUNTING_PROVIDER_TIMEOUT_SECONDS, default 30.
func ProviderTimeout() time.Duration {
	n := intFromEnv("ACCOUNTING_PROVIDER_TIMEOUT_SECONDS", 30)
	if n <= 0 {
		n = 30
	}
	return time.Duration(n) * time.Second
}

// ProviderRatePerMinute caps outbound provider calls per integration.
// ACCOUNTING_PROVIDER_RATE_PER_MIN, default 60.
func ProviderRatePerMinute() int {
	n := intFromEnv("ACCOUNTING_PROVIDER_RATE_PER_MIN", 60)
	if n <= 0 {
		n = 60
	}
	return n
}

// QuickBooksBaseURL returns the API host for a QuickBooks environment
// ("sandbox" or "production"). QUICKBOOKS_API_BASE_URL overrides both.
func QuickBooksBaseURL(environment string) string {
	if v := strings.TrimSpace(os.Getenv("QUICKBOOKS_API_BASE_URL")); v != "" {
		return strings.TrimRight(v, "/")
	}
	environment = strings.ToLower(strings.TrimSpace(environment))
	if environment == "" {
		environment = "sandbox"
	}
	return "https://" + environment + "-quickbooks.api.intuit.com"
}

// XeroBaseURL returns the Xero accounting API root. XERO_API_BASE_URL overrides it.
func XeroBaseURL() string {
	if v := strings.TrimSpace(os.Getenv("XERO_API_BASE_URL")); v != "" {
		return strings.TrimRight(v, "/")
	}
	return "https://api.xero.com/api.xro/2.0"
}

func envBool(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	default:
		return def
	}
}
