package autostart

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func stubEnv(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	oldHome, oldExe, oldEnv := userHomeDir, executable, getenv
	userHomeDir = func() (string, error) { return home, nil }
	executable = func() (string, error) { return "/opt/key watch/keywatch", nil }
	getenv = func(string) string { return "" }
	t.Cleanup(func() { userHomeDir, executable, getenv = oldHome, oldExe, oldEnv })
	return home
}

func TestEntryCommandQuotes(t *testing.T) {
	e := entry{Argv: []string{`C:\Program Files\keywatch.exe`, "run", "--config", "plain"}}
	want := `"C:\\Program Files\\keywatch.exe" run --config plain`
	if got := e.Command(); got != want {
		t.Errorf("Expected %s, got %s", want, got)
	}
}

func TestDesktopEntryLifecycle(t *testing.T) {
	home := stubEnv(t)
	path := filepath.Join(home, ".config", "autostart", "keywatch.desktop")

	e, err := newEntry([]string{"run"})
	if err != nil {
		t.Fatal(err)
	}
	if fileExists(xdgDesktopPath) {
		t.Fatal("Expected no entry before enabling")
	}
	if err := writeTemplate(xdgDesktopPath, xdgDesktopEntry, e); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Expected desktop file at %s: %v", path, err)
	}
	if !strings.Contains(string(data), `Exec="/opt/key watch/keywatch" run`) {
		t.Errorf("Unexpected desktop entry:\n%s", data)
	}
	if !fileExists(xdgDesktopPath) {
		t.Error("Expected entry to exist")
	}
	if err := removeFile(xdgDesktopPath); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := removeFile(xdgDesktopPath); err != nil {
		t.Errorf("Expected removing a missing entry to succeed, got %v", err)
	}
}

func TestXDGConfigHome(t *testing.T) {
	stubEnv(t)
	getenv = func(k string) string {
		if k == "XDG_CONFIG_HOME" {
			return "/xdg"
		}
		return ""
	}
	p, err := xdgDesktopPath()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/xdg", "autostart", "keywatch.desktop"); p != want {
		t.Errorf("Expected %s, got %s", want, p)
	}
}

func TestPlistArguments(t *testing.T) {
	home := stubEnv(t)
	e, _ := newEntry([]string{"run", "--config", "/tmp/c.yaml"})
	if err := writeTemplate(macPlistPath, macLaunchAgentPlist, e); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(home, "Library", "LaunchAgents", "com.keywatch.agent.plist"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"<string>/opt/key watch/keywatch</string>",
		"<string>run</string>",
		"<string>/tmp/c.yaml</string>",
	} {
		if !strings.Contains(string(data), want) {
			t.Errorf("Expected plist to contain %s", want)
		}
	}
}
