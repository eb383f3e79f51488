package main

import (
	"testing"
)

func TestParseEnvFlags(t *testing.T) {
	env, err := parseEnvFlags([]string{"FOO=bar", "EMPTY=", "EQ=a=b"})
	if err != nil {
		t.Fatalf("parseEnvFlags: %v", err)
	}
	if env["FOO"] != "bar" {
		t.Errorf("expected FOO=bar, got %q", env["FOO"])
	}
	if env["EMPTY"] != "" {
		t.Errorf("expected empty value allowed, got %q", env["EMPTY"])
	}
	if env["EQ"] != "a=b" {
		t.Errorf("values may contain '=', got %q", env["EQ"])
	}
}

func TestParseEnvFlags_Invalid(t *testing.T) {
	for _, bad := range []string{"NOVALUE", "=bar"} {
		if _, err := parseEnvFlags([]string{bad}); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestParseEnvFlags_Empty(t *testing.T) {
	env, err := parseEnvFlags(nil)
	if err != nil {
		t.Fatalf("parseEnvFlags(nil): %v", err)
	}
	if env != nil {
		t.Errorf("expected nil map for no flags, got %v", env)
	}
}

func TestIsURL(t *testing.T) {
	if !isURL("https://example.com/mcp") || !isURL("http://localhost:8080") {
		t.Error("expected http(s) URLs to be recognized")
	}
	if isURL("npx") || isURL("./server") || isURL("ftp://example.com") {
		t.Error("non-http targets must not be treated as URLs")
	}
}
