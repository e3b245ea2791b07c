package main

import (
	"testing"
)

func TestSubmitVideoAndDuplicate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{
		"submit", "--id", "content-1", "--url", "https://example.com/v/1", "--views", "1200",
	}, env.configPath)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	requireContains(t, out, "Queued content-1")

	out, _, err = runCLI(t, []string{
		"submit", "--id", "content-1", "--url", "https://example.com/v/1",
	}, env.configPath)
	if err != nil {
		t.Fatalf("duplicate submit: %v", err)
	}
	requireContains(t, out, "already queued")
}

func TestSubmitGeneratesContentID(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{
		"submit", "--url", "https://example.com/v/2",
	}, env.configPath)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	requireContains(t, out, "Queued ")
}

func TestSubmitStaticRequiresCaption(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"submit", "--kind", "static"}, env.configPath); err == nil {
		t.Fatal("expected static submit without caption to fail")
	}

	out, _, err := runCLI(t, []string{
		"submit", "--kind", "static", "--id", "content-2", "--caption", "check this out",
	}, env.configPath)
	if err != nil {
		t.Fatalf("static submit: %v", err)
	}
	requireContains(t, out, "Queued content-2")
}

func TestSubmitRejectsUnknownKind(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"submit", "--kind", "audio"}, env.configPath); err == nil {
		t.Fatal("expected unknown kind to fail")
	}
}
