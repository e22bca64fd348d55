// Package profile loads device interaction profiles: the prompt grammar,
// credentials, and post-login setup a session needs before the engine can
// drive it. Profiles are YAML files, one per device class.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wireline-network/wireline/pkg/interact"
	"github.com/wireline-network/wireline/pkg/util"
)

// Default windows applied when a profile leaves them out.
const (
	defaultTimeout           = Duration(30 * time.Second)
	defaultInactivityTimeout = Duration(10 * time.Second)
)

// Duration is a time.Duration that unmarshals from "30s" style YAML
// scalars.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Profile describes how to talk to one device class.
type Profile struct {
	Name string `yaml:"name"`

	// ConnectCommand starts the session on the local shell stream, e.g.
	// "telnet {host}" or "ssh {user}@{host}".
	ConnectCommand string `yaml:"connect_command"`

	Login     string   `yaml:"login,omitempty"`
	Passwords []string `yaml:"passwords,omitempty"`

	// RepeatPassword controls exhausted-queue behavior (default true).
	RepeatPassword *bool `yaml:"repeat_password,omitempty"`

	// Prompt grammar. Prompt is required; the rest fall back to the
	// interact package defaults.
	Prompt         string   `yaml:"prompt"`
	BasePrompt     string   `yaml:"base_prompt,omitempty"`
	LoginPrompt    string   `yaml:"login_prompt,omitempty"`
	PasswordPrompt string   `yaml:"password_prompt,omitempty"`
	Banner         string   `yaml:"banner,omitempty"`
	Failures       []string `yaml:"failures,omitempty"`

	// Post-login setup commands.
	SetTimeoutCmd string `yaml:"set_timeout_cmd,omitempty"`
	SetPromptCmd  string `yaml:"set_prompt_cmd,omitempty"`

	// Scheduling windows.
	Timeout            Duration `yaml:"timeout,omitempty"`
	InactivityTimeout  Duration `yaml:"inactivity_timeout,omitempty"`
	TerminatingTimeout Duration `yaml:"terminating_timeout,omitempty"`
}

// Load reads and validates one profile file.
func Load(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", path, err)
	}

	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}

	applyDefaults(&p)
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return &p, nil
}

// LoadAll reads all .yaml profiles in dir, keyed by profile name.
func LoadAll(dir string) (map[string]*Profile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading profiles dir %s: %w", dir, err)
	}

	profiles := make(map[string]*Profile)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		p, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		profiles[p.Name] = p
	}
	return profiles, nil
}

func applyDefaults(p *Profile) {
	if p.Timeout == 0 {
		p.Timeout = defaultTimeout
	}
	if p.InactivityTimeout == 0 {
		p.InactivityTimeout = defaultInactivityTimeout
	}
}

// Validate checks required fields and that every pattern compiles.
func (p *Profile) Validate() error {
	v := &util.ValidationBuilder{}
	v.Add(p.Name != "", "name is required")
	v.Add(p.ConnectCommand != "", "connect_command is required")
	v.Add(p.Prompt != "", "prompt is required")

	for _, field := range []struct {
		name, pattern string
	}{
		{"prompt", p.Prompt},
		{"base_prompt", p.BasePrompt},
		{"login_prompt", p.LoginPrompt},
		{"password_prompt", p.PasswordPrompt},
		{"banner", p.Banner},
	} {
		if field.pattern == "" {
			continue
		}
		if _, err := regexp.Compile(field.pattern); err != nil {
			v.AddErrorf("%s: invalid pattern %q: %v", field.name, field.pattern, err)
		}
	}
	for i, f := range p.Failures {
		if _, err := regexp.Compile(f); err != nil {
			v.AddErrorf("failures[%d]: invalid pattern %q: %v", i, f, err)
		}
	}
	return v.Build()
}

// LoginConfig compiles the profile into the login machine's configuration.
// Validate must have passed.
func (p *Profile) LoginConfig() interact.Config {
	cfg := interact.Config{
		CommandString:  p.ConnectCommand,
		Login:          p.Login,
		Passwords:      p.Passwords,
		RepeatPassword: p.RepeatPassword,
		TargetPattern:  regexp.MustCompile(p.Prompt),
		SetTimeoutCmd:  p.SetTimeoutCmd,
		SetPromptCmd:   p.SetPromptCmd,
	}
	if p.BasePrompt != "" {
		cfg.BasePattern = regexp.MustCompile(p.BasePrompt)
	}
	if p.LoginPrompt != "" {
		cfg.LoginPattern = regexp.MustCompile(p.LoginPrompt)
	}
	if p.PasswordPrompt != "" {
		cfg.PasswordPattern = regexp.MustCompile(p.PasswordPrompt)
	}
	if p.Banner != "" {
		cfg.BannerPattern = regexp.MustCompile(p.Banner)
	}
	for _, f := range p.Failures {
		cfg.FailurePatterns = append(cfg.FailurePatterns, regexp.MustCompile(f))
	}
	return cfg
}
