// Package config loads and watches the keywatch configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.yaml.in/yaml/v3"
)

const maxConfigFileBytes = 1 << 20

// Edge names accepted in bindings.
const (
	EdgePress   = "press"
	EdgeRelease = "release"
)

// Config represents the application configuration
type Config struct {
	// Backend names the capture backend; empty picks the platform default
	Backend string `yaml:"backend,omitempty"`

	// Display is the X display to connect to; empty means $DISPLAY
	Display string `yaml:"display,omitempty"`

	// Transparent lets grabbed keys through to the focused window (X11 keys backend)
	Transparent bool `yaml:"transparent,omitempty"`

	// SkipRepeat ignores key auto-repeat
	SkipRepeat bool `yaml:"skip_repeat,omitempty"`

	// Timeout bounds every listener operation
	Timeout time.Duration `yaml:"timeout,omitempty"`

	Log LogConfig `yaml:"log"`

	// Tray shows a status icon with pause and quit entries
	Tray bool `yaml:"tray"`

	// Autostart registers keywatch to start on login
	Autostart bool `yaml:"autostart"`

	Bindings []Binding `yaml:"bindings"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Level       string `yaml:"level,omitempty"`
	Development bool   `yaml:"development,omitempty"`
}

// Binding is one hotkey and what it does.
type Binding struct {
	// Name identifies the binding in logs and across reloads
	Name string `yaml:"name"`

	// Hotkey is a "+" separated combo such as "ctrl+alt+k"
	Hotkey string `yaml:"hotkey,omitempty"`

	// Keycode and Modifiers give a raw platform combo instead of Hotkey
	Keycode   *uint32 `yaml:"keycode,omitempty"`
	Modifiers uint32  `yaml:"modifiers,omitempty"`

	// Edge is "press" (default) or "release"
	Edge string `yaml:"edge,omitempty"`

	// Message is logged when the binding fires
	Message string `yaml:"message,omitempty"`

	// Notify shows Message (or the name) as a desktop notification
	Notify bool `yaml:"notify,omitempty"`

	// Copy puts this text on the clipboard when the binding fires
	Copy string `yaml:"copy,omitempty"`

	// Run is a command and its arguments started when the binding fires
	Run []string `yaml:"run,omitempty"`
}

// Release reports whether b fires on key release.
func (b Binding) Release() bool {
	return b.Edge == EdgeRelease
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Timeout: 5 * time.Second,
		Log:     LogConfig{Level: "info"},
		Tray:    true,
		Bindings: []Binding{
			{
				Name:    "hello",
				Hotkey:  "ctrl+alt+h",
				Message: "hello from keywatch",
			},
		},
	}
}

// Validate reports every problem in c.
func (c *Config) Validate() error {
	var errs []error
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout %s is negative", c.Timeout))
	}
	seen := make(map[string]bool)
	for i, b := range c.Bindings {
		where := fmt.Sprintf("binding %d (%q)", i, b.Name)
		switch {
		case b.Name == "":
			errs = append(errs, fmt.Errorf("binding %d: name is required", i))
		case seen[b.Name]:
			errs = append(errs, fmt.Errorf("%s: duplicate name", where))
		}
		seen[b.Name] = true

		if (b.Hotkey == "") == (b.Keycode == nil) {
			errs = append(errs, fmt.Errorf("%s: set exactly one of hotkey and keycode", where))
		}
		if b.Keycode == nil && b.Modifiers != 0 {
			errs = append(errs, fmt.Errorf("%s: modifiers need a keycode", where))
		}
		if b.Edge != "" && b.Edge != EdgePress && b.Edge != EdgeRelease {
			errs = append(errs, fmt.Errorf("%s: edge %q is not press or release", where, b.Edge))
		}
		if len(b.Run) > 0 && b.Run[0] == "" {
			errs = append(errs, fmt.Errorf("%s: run has an empty command", where))
		}
	}
	return errors.Join(errs...)
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	out := *c
	out.Bindings = make([]Binding, len(c.Bindings))
	for i, b := range c.Bindings {
		if b.Keycode != nil {
			code := *b.Keycode
			b.Keycode = &code
		}
		b.Run = slices.Clone(b.Run)
		out.Bindings[i] = b
	}
	return &out
}

// Parse decodes and validates a YAML document. Unset fields keep their
// defaults.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Bindings = nil
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Manager handles loading, saving and watching the configuration
type Manager struct {
	log  *zap.Logger
	path string

	mu        sync.Mutex
	config    *Config
	callbacks []func(*Config)
}

// NewManager creates a manager for path. Empty path means DefaultPath.
func NewManager(path string, log *zap.Logger) (*Manager, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	if log == nil {
		log = zap.L()
	}
	return &Manager{
		log:    log.With(zap.String("component", "config"), zap.String("path", path)),
		path:   path,
		config: DefaultConfig(),
	}, nil
}

// DefaultPath returns the per-user configuration file path
func DefaultPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "keywatch")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "keywatch")
	default:
		dir := os.Getenv("XDG_CONFIG_HOME")
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(home, ".config")
		}
		configDir = filepath.Join(dir, "keywatch")
	}
	return filepath.Join(configDir, "config.yaml"), nil
}

// SetLogger replaces the manager's logger.
func (m *Manager) SetLogger(log *zap.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.log = log.With(zap.String("component", "config"), zap.String("path", m.path))
}

// Path returns the file the manager reads.
func (m *Manager) Path() string {
	return m.path
}

// Load reads the configuration from disk. A missing file leaves the
// defaults in place. A bad file leaves the current configuration in place.
func (m *Manager) Load() error {
	info, err := os.Stat(m.path)
	if os.IsNotExist(err) {
		m.log.Info("no config file, using defaults")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if info.Size() > maxConfigFileBytes {
		return fmt.Errorf("load config: %s is larger than %d bytes", m.path, maxConfigFileBytes)
	}
	data, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return err
	}
	m.Set(cfg)
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	cfg := m.Get()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("save config: marshal: %w", err)
	}
	if err := atomicWrite(m.path, data); err != nil {
		return err
	}
	m.log.Info("config saved", zap.Int("bytes", len(data)))
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config.Clone()
}

// Set replaces the configuration and notifies subscribers
func (m *Manager) Set(config *Config) {
	m.mu.Lock()
	m.config = config.Clone()
	callbacks := slices.Clone(m.callbacks)
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(config.Clone())
	}
}

// OnChange registers a function called with every new configuration
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save config: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config.yaml.tmp.*")
	if err != nil {
		return fmt.Errorf("save config: create temp: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return fmt.Errorf("save config: write: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("save config: sync: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("save config: close: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save config: rename: %w", err)
	}
	return nil
}
