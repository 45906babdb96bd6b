// Package autostart registers keywatch to start on login.
package autostart

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"
)

const label = "keywatch"

const macLaunchAgentPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>com.keywatch.agent</string>
    <key>ProgramArguments</key>
    <array>
{{- range .Argv}}
        <string>{{html .}}</string>
{{- end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>
`

const xdgDesktopEntry = `[Desktop Entry]
Type=Application
Name=keywatch
Comment=Global hotkey daemon
Exec={{.Command}}
Terminal=false
X-GNOME-Autostart-enabled=true
`

// Test seams.
var (
	userHomeDir = os.UserHomeDir
	executable  = os.Executable
	getenv      = os.Getenv
)

type entry struct {
	Argv []string
}

// Command quotes Argv for an Exec= or Run key line.
func (e entry) Command() string {
	parts := make([]string, len(e.Argv))
	for i, a := range e.Argv {
		if strings.ContainsAny(a, " \t\"'\\") {
			a = `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(a) + `"`
		}
		parts[i] = a
	}
	return strings.Join(parts, " ")
}

func newEntry(args []string) (entry, error) {
	execPath, err := executable()
	if err != nil {
		return entry{}, fmt.Errorf("failed to get executable path: %w", err)
	}
	return entry{Argv: append([]string{execPath}, args...)}, nil
}

// Enable registers the running executable with args to start on login
func Enable(args ...string) error {
	e, err := newEntry(args)
	if err != nil {
		return err
	}
	switch runtime.GOOS {
	case "darwin":
		return writeTemplate(macPlistPath, macLaunchAgentPlist, e)
	case "windows":
		return enableWindows(e)
	default:
		return writeTemplate(xdgDesktopPath, xdgDesktopEntry, e)
	}
}

// Disable removes the login entry
func Disable() error {
	switch runtime.GOOS {
	case "darwin":
		return removeFile(macPlistPath)
	case "windows":
		return disableWindows()
	default:
		return removeFile(xdgDesktopPath)
	}
}

// IsEnabled checks if auto-start is enabled
func IsEnabled() bool {
	switch runtime.GOOS {
	case "darwin":
		return fileExists(macPlistPath)
	case "windows":
		return isEnabledWindows()
	default:
		return fileExists(xdgDesktopPath)
	}
}

func macPlistPath() (string, error) {
	home, err := userHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "Library", "LaunchAgents", "com.keywatch.agent.plist"), nil
}

func xdgDesktopPath() (string, error) {
	dir := getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := userHomeDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "autostart", label+".desktop"), nil
}

func writeTemplate(path func() (string, error), text string, e entry) error {
	p, err := path()
	if err != nil {
		return err
	}
	tmpl, err := template.New(label).Parse(text)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return err
	}
	f, err := os.Create(p)
	if err != nil {
		return err
	}
	if err := tmpl.Execute(f, e); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func removeFile(path func() (string, error)) error {
	p, err := path()
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func fileExists(path func() (string, error)) bool {
	p, err := path()
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}
