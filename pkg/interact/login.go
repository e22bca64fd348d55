// Package interact implements reusable interactive session patterns on top
// of pkg/command. The central one is the login state machine used by
// telnet/ssh-style session commands: it multiplexes login, password,
// failure, and ready-prompt detection and drives the multi-step handshake
// through to a usable shell.
package interact

import (
	"fmt"
	"regexp"

	"github.com/wireline-network/wireline/pkg/command"
	"github.com/wireline-network/wireline/pkg/connection"
	"github.com/wireline-network/wireline/pkg/util"
)

// State names the login machine's position in the handshake.
type State int

const (
	// StateAwaitAny: watching for login prompt, password prompt, or the
	// target prompt (already-authenticated sessions skip straight there).
	StateAwaitAny State = iota
	// StateAwaitPrompt: credentials sent, watching for the target prompt
	// (or another password prompt).
	StateAwaitPrompt
	// StateDone: target prompt reached and every configured setup command
	// sent.
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitAny:
		return "await-login-or-password-or-prompt"
	case StateAwaitPrompt:
		return "await-target-prompt"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Default prompt patterns, the ones practically every device variant of
// this handshake answers to.
var (
	DefaultLoginPattern    = regexp.MustCompile(`(?i)login:?\s*$|username:?\s*$`)
	DefaultPasswordPattern = regexp.MustCompile(`(?i)password:?\s*$`)
	DefaultBannerPattern   = regexp.MustCompile(`(?i)^(connected to|trying |escape character)`)
)

// Config describes one login handshake.
type Config struct {
	// CommandString kicks the session off on the attached connection,
	// e.g. "telnet 10.0.0.1" or "ssh admin@10.0.0.1". Required.
	CommandString string

	// Login is sent in answer to the login/username prompt.
	Login string

	// Passwords is the ordered queue consumed one per password prompt.
	Passwords []string

	// RepeatPassword resends the last queued password when the queue is
	// exhausted instead of failing. Default true.
	RepeatPassword *bool

	// LoginPattern, PasswordPattern, BannerPattern default to the package
	// patterns above when nil.
	LoginPattern    *regexp.Regexp
	PasswordPattern *regexp.Regexp
	BannerPattern   *regexp.Regexp

	// TargetPattern matches the prompt that means the session is usable.
	// Required.
	TargetPattern *regexp.Regexp

	// BasePattern, when set, delays failure reporting until the local
	// prompt reappears so the failure is reported against a recognizable
	// return-to-sender prompt, not mid-stream.
	BasePattern *regexp.Regexp

	// FailurePatterns abort the handshake, e.g. "Permission denied",
	// "closed by foreign host".
	FailurePatterns []*regexp.Regexp

	// SetTimeoutCmd and SetPromptCmd are post-login setup commands, each
	// sent at most once after the target prompt appears. The machine is
	// only done when every configured one has fired.
	SetTimeoutCmd string
	SetPromptCmd  string
}

func (c *Config) repeatPassword() bool {
	return c.RepeatPassword == nil || *c.RepeatPassword
}

func (c *Config) validate() error {
	v := &util.ValidationBuilder{}
	v.Add(c.CommandString != "", "command string is required")
	v.Add(c.TargetPattern != nil, "target prompt pattern is required")
	return v.Build()
}

// Login drives an interactive login handshake as a Command: submit it to a
// runner like any other observer; the result is the session transcript.
type Login struct {
	*command.Command

	cfg   Config
	state State

	sentLogin          bool
	sentPassword       bool
	sentTimeoutSetting bool
	sentPromptSetting  bool

	pwIndex int
	failErr error
}

// NewLogin builds the login machine for conn. Defaults are filled in for
// any prompt pattern the config leaves nil.
func NewLogin(conn connection.Connection, cfg Config, opts ...command.Option) (*Login, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.LoginPattern == nil {
		cfg.LoginPattern = DefaultLoginPattern
	}
	if cfg.PasswordPattern == nil {
		cfg.PasswordPattern = DefaultPasswordPattern
	}
	if cfg.BannerPattern == nil {
		cfg.BannerPattern = DefaultBannerPattern
	}

	l := &Login{cfg: cfg, state: StateAwaitAny}
	cmd, err := command.New(conn, l, opts...)
	if err != nil {
		return nil, err
	}
	l.Command = cmd
	return l, nil
}

// State returns the machine's current position. For logging and tests; the
// transition logic runs on the connection's feed goroutine.
func (l *Login) State() State { return l.state }

// BuildCommandString implements command.Handler.
func (l *Login) BuildCommandString() string { return l.cfg.CommandString }

// OnLine implements command.Handler: one step of the state machine per
// delivered line. Prompts arrive as unterminated fragments, so every
// pattern is matched on partial lines too.
func (l *Login) OnLine(res *command.Result, line string, fullLine bool) error {
	if fullLine && line != "" {
		res.AddLine(line)
	}

	// A recorded failure waits for the base prompt before reporting.
	if l.failErr != nil {
		if l.cfg.BasePattern != nil && !l.cfg.BasePattern.MatchString(line) {
			return nil
		}
		l.state = StateDone
		return l.failErr
	}

	for _, pat := range l.cfg.FailurePatterns {
		if pat.MatchString(line) {
			l.failErr = &FailedError{Command: l.cfg.CommandString, Pattern: pat.String(), Line: line}
			l.Log().WithField("line", line).Debug("failure indication matched")
			if l.cfg.BasePattern == nil {
				l.state = StateDone
				return l.failErr
			}
			return nil
		}
	}

	// Fresh-connection banner: nudge the remote end with a newline so it
	// presents a prompt. Logical state is unchanged.
	if l.cfg.BannerPattern.MatchString(line) {
		return l.Connection().Sendline("")
	}

	switch l.state {
	case StateAwaitAny:
		if !l.sentLogin && l.cfg.Login != "" && l.cfg.LoginPattern.MatchString(line) {
			l.sentLogin = true
			l.Log().Debug("login prompt matched, sending login")
			return l.Connection().Sendline(l.cfg.Login)
		}
		if l.cfg.PasswordPattern.MatchString(line) {
			if err := l.sendNextPassword(); err != nil {
				l.state = StateDone
				return err
			}
			l.state = StateAwaitPrompt
			return nil
		}
		if l.cfg.TargetPattern.MatchString(line) {
			return l.onTargetPrompt()
		}
	case StateAwaitPrompt:
		// Another password prompt consumes the next queued password: some
		// devices ask twice, some reject the first attempt silently.
		if l.cfg.PasswordPattern.MatchString(line) {
			if err := l.sendNextPassword(); err != nil {
				l.state = StateDone
				return err
			}
			return nil
		}
		if l.cfg.TargetPattern.MatchString(line) {
			return l.onTargetPrompt()
		}
	}
	return nil
}

// sendNextPassword consumes the password queue. An exhausted queue either
// repeats the last password or fails the handshake — it never blocks
// waiting for a password that will never arrive.
func (l *Login) sendNextPassword() error {
	var pw string
	switch {
	case l.pwIndex < len(l.cfg.Passwords):
		pw = l.cfg.Passwords[l.pwIndex]
		l.pwIndex++
	case l.cfg.repeatPassword() && len(l.cfg.Passwords) > 0:
		pw = l.cfg.Passwords[len(l.cfg.Passwords)-1]
	default:
		return &NoMorePasswordsError{Command: l.cfg.CommandString, Consumed: l.pwIndex}
	}
	l.sentPassword = true
	l.Log().Debug("password prompt matched, sending password")
	return l.Connection().SendlineSecret(pw)
}

// onTargetPrompt sends the next pending setup command, one per prompt
// appearance; when none remain the handshake is complete.
func (l *Login) onTargetPrompt() error {
	if !l.sentTimeoutSetting && l.cfg.SetTimeoutCmd != "" {
		l.sentTimeoutSetting = true
		return l.Connection().Sendline(l.cfg.SetTimeoutCmd)
	}
	if !l.sentPromptSetting && l.cfg.SetPromptCmd != "" {
		l.sentPromptSetting = true
		return l.Connection().Sendline(l.cfg.SetPromptCmd)
	}
	l.state = StateDone
	l.Log().Debug("target prompt reached, handshake complete")
	return command.ParsingDone
}
