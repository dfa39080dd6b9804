package credentials_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/quotawatch/quotawatch/adapters/credentials"
)

func TestEnv_FirstVariableWins(t *testing.T) {
	t.Setenv("QUOTAWATCH_TOKEN", "primary")
	t.Setenv("GITHUB_TOKEN", "fallback")

	token, ok := credentials.NewEnv().Token()
	if !ok || token != "primary" {
		t.Errorf("Token = (%q, %v), want primary", token, ok)
	}
}

func TestEnv_Fallback(t *testing.T) {
	t.Setenv("QUOTAWATCH_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "fallback")

	token, ok := credentials.NewEnv().Token()
	if !ok || token != "fallback" {
		t.Errorf("Token = (%q, %v), want fallback", token, ok)
	}
}

func TestEnv_Absent(t *testing.T) {
	t.Setenv("QUOTAWATCH_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "")

	if _, ok := credentials.NewEnv().Token(); ok {
		t.Error("expected no token")
	}
}

func TestFile_ReadsFreshPerCall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("  ghp_first \n"), 0o600); err != nil {
		t.Fatal(err)
	}

	f := &credentials.File{Path: path}

	token, ok := f.Token()
	if !ok || token != "ghp_first" {
		t.Errorf("Token = (%q, %v), want trimmed ghp_first", token, ok)
	}

	// A rotated token is picked up without restarting.
	if err := os.WriteFile(path, []byte("ghp_second"), 0o600); err != nil {
		t.Fatal(err)
	}
	token, ok = f.Token()
	if !ok || token != "ghp_second" {
		t.Errorf("Token = (%q, %v), want ghp_second", token, ok)
	}
}

func TestFile_MissingIsNotAnError(t *testing.T) {
	f := &credentials.File{Path: filepath.Join(t.TempDir(), "absent")}
	if _, ok := f.Token(); ok {
		t.Error("expected no token for missing file")
	}
}

func TestGHConfig_ParsesHostsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.yml")
	content := `github.com:
    oauth_token: gho_abc123
    user: octocat
other.example.com:
    oauth_token: gho_other
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	g := &credentials.GHConfig{Path: path, Host: "github.com"}

	token, ok := g.Token()
	if !ok || token != "gho_abc123" {
		t.Errorf("Token = (%q, %v), want gho_abc123", token, ok)
	}
}

func TestGHConfig_MissingFile(t *testing.T) {
	g := &credentials.GHConfig{Path: filepath.Join(t.TempDir(), "hosts.yml"), Host: "github.com"}
	if _, ok := g.Token(); ok {
		t.Error("expected no token for missing hosts file")
	}
}

func TestChain_FirstAvailableWins(t *testing.T) {
	chain := credentials.Chain{
		credentials.Static{},
		credentials.Static{Value: "second"},
		credentials.Static{Value: "third"},
	}

	token, ok := chain.Token()
	if !ok || token != "second" {
		t.Errorf("Token = (%q, %v), want second", token, ok)
	}
}

func TestChain_Empty(t *testing.T) {
	if _, ok := (credentials.Chain{}).Token(); ok {
		t.Error("expected no token from empty chain")
	}
}
