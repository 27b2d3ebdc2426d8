package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	if err := NewDefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestTLDConfig_StoreDefaultsToFile(t *testing.T) {
	cfg := NewDefaultConfig().TLD
	cfg.Store = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty store should default to file: %v", err)
	}
	if cfg.Store != TLDStoreFile {
		t.Errorf("store = %q, want %q", cfg.Store, TLDStoreFile)
	}
}

func TestTLDConfig_FileStoreNeedsPath(t *testing.T) {
	cfg := NewDefaultConfig().TLD
	cfg.CachePath = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("file store without cache_path should fail")
	}
	cfg.Store = TLDStoreMemory
	if err := cfg.Validate(); err != nil {
		t.Errorf("memory store needs no path: %v", err)
	}
}

func TestTLDConfig_Invalid(t *testing.T) {
	tests := map[string]func(c *TLDConfig){
		"unknown store": func(c *TLDConfig) { c.Store = "redis" },
		"bad url":       func(c *TLDConfig) { c.SourceURL = "not a url" },
		"short ttl":     func(c *TLDConfig) { c.TTL = time.Second },
		"no timeout":    func(c *TLDConfig) { c.FetchTimeout = 0 },
	}
	for name, mutate := range tests {
		cfg := NewDefaultConfig().TLD
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestRenderConfig_Modes(t *testing.T) {
	cfg := RenderConfig{LinkTimeout: time.Second}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to lenient: %v", err)
	}
	if cfg.Strict() {
		t.Error("default should be lenient")
	}

	cfg.LinkValidation = LinkValidationStrict
	if err := cfg.Validate(); err != nil || !cfg.Strict() {
		t.Errorf("strict mode: err=%v strict=%v", err, cfg.Strict())
	}

	cfg.LinkValidation = "paranoid"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown mode should fail")
	}
}
