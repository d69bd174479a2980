package config

import (
	"os"
	"testing"
)

// TestResolveEnvRefScenarioS5 covers the scenario where ENV:NAME:default
// falls back to the default when the variable is unset, and picks up
// the variable's value when it is set.
func TestResolveEnvRefScenarioS5(t *testing.T) {
	const name = "K8S_LIVE_GATEWAY_TEST_SECRET"
	os.Unsetenv(name)

	if got, want := resolveEnvRef("ENV:"+name+":default-val"), "default-val"; got != want {
		t.Fatalf("unset: got %q, want %q", got, want)
	}

	t.Setenv(name, "x")
	if got, want := resolveEnvRef("ENV:"+name+":default-val"), "x"; got != want {
		t.Fatalf("set: got %q, want %q", got, want)
	}
}

func TestResolveEnvRefPassesThroughPlainValues(t *testing.T) {
	if got := resolveEnvRef("plain-value"); got != "plain-value" {
		t.Fatalf("got %q, want unchanged", got)
	}
}

func TestResolveEnvRefNoDefault(t *testing.T) {
	const name = "K8S_LIVE_GATEWAY_TEST_NO_DEFAULT"
	os.Unsetenv(name)
	if got := resolveEnvRef("ENV:" + name); got != "" {
		t.Fatalf("got %q, want empty string", got)
	}
}
