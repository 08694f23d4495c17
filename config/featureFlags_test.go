package config

import (
	"testing"
	"time"
)

func TestQuickBooksBaseURL(t *testing.T) {
	t.Setenv("QUICKBOOKS_API_BASE_URL", "")
	if got := QuickBooksBaseURL(""); got != "https://sandbox-quickbooks.api.intuit.com" {
		t.Fatalf("default=%q", got)
	}
	if got := QuickBooksBaseURL("Production"); got != "https://production-quickbooks.api.intuit.com" {
		t.Fatalf("production=%q", got)
	}
	t.Setenv("QUICKBOOKS_API_BASE_URL", "http://localhost:9000/")
	if got := QuickBooksBaseURL("production"); got != "http://localhost:9000" {
		t.Fatalf("override=%q", got)
	}
}

func TestProviderTimeoutAndRate(t *testing.T) {
	t.Setenv("ACCOUNTING_PROVIDER_TIMEOUT_SECONDS", "")
	t.Setenv("ACCOUNTING_PROVIDER_RATE_PER_MIN", "-5")
	if ProviderTimeout() != 30*time.Second {
		t.Fatalf("timeout=%s", ProviderTimeout())
	}
	if ProviderRatePerMinute() != 60 {
		t.Fatalf("rate=%d", ProviderRatePerMinute())
	}
	t.Setenv("ACCOUNTING_PROVIDER_TIMEOUT_SECONDS", "5")
	if ProviderTimeout() != 5*time.Second {
		t.Fatalf("timeout=%s", ProviderTimeout())
	}
}

func TestEnvBool(t *testing.T) {
	cases := []struct {
		val  string
		def  bool
		want bool
	}{
		{"true", false, true},
		{"OFF", true, false},
		{"", true, true},
		{"maybe", false, false},
	}
	for _, tc := range cases {
		t.Setenv("ACCOUNTING_SYNC_LOCK", tc.val)
		if got := envBool("ACCOUNTING_SYNC_LOCK", tc.def); got != tc.want {
			t.Fatalf("envBool(%q, %v)=%v", tc.val, tc.def, got)
		}
	}
}
