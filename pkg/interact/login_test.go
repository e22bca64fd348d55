package interact_test

import (
	"errors"
	"regexp"
	"testing"

	"github.com/wireline-network/wireline/internal/testutil"
	"github.com/wireline-network/wireline/pkg/command"
	"github.com/wireline-network/wireline/pkg/interact"
	"github.com/wireline-network/wireline/pkg/observer"
)

func boolPtr(b bool) *bool { return &b }

func newLogin(t *testing.T, conn *testutil.FakeConnection, cfg interact.Config) *interact.Login {
	t.Helper()
	if cfg.CommandString == "" {
		cfg.CommandString = "telnet 10.0.0.1"
	}
	if cfg.TargetPattern == nil {
		cfg.TargetPattern = regexp.MustCompile(`\$ $`)
	}
	l, err := interact.NewLogin(conn, cfg,
		command.WithObserverOptions(observer.WithRegistry(testutil.Registry(t))))
	if err != nil {
		t.Fatalf("NewLogin: %v", err)
	}
	if err := l.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	conn.Subscribe(l)
	return l
}

func TestLoginConfigValidation(t *testing.T) {
	conn := testutil.NewFakeConnection("dev")
	_, err := interact.NewLogin(conn, interact.Config{CommandString: "telnet host"})
	if err == nil {
		t.Fatal("NewLogin without target pattern succeeded")
	}
}

func TestLoginHandshake(t *testing.T) {
	conn := testutil.NewFakeConnection("dev")
	l := newLogin(t, conn, interact.Config{
		Login:     "alice",
		Passwords: []string{"secret"},
	})

	conn.FeedPrompt("login: ")
	conn.FeedPrompt("password: ")
	conn.FeedFull("Last login: yesterday")
	conn.FeedPrompt("host:~$ ")

	if got := l.State(); got != interact.StateDone {
		t.Fatalf("state = %v, want done", got)
	}
	if !l.Done() {
		t.Fatal("login command not done")
	}
	if _, err := l.Result(); err != nil {
		t.Fatalf("Result: %v", err)
	}

	sent := conn.SentLines()
	want := []string{"alice", "secret"}
	if len(sent) != len(want) {
		t.Fatalf("sent = %v, want %v", sent, want)
	}
	for i := range want {
		if sent[i] != want[i] {
			t.Errorf("sent[%d] = %q, want %q", i, sent[i], want[i])
		}
	}
}

func TestLoginSkipsStraightToPrompt(t *testing.T) {
	conn := testutil.NewFakeConnection("dev")
	l := newLogin(t, conn, interact.Config{
		Login:     "alice",
		Passwords: []string{"secret"},
	})

	// Already-authenticated session: target prompt with no credential dance.
	conn.FeedPrompt("host:~$ ")

	if got := l.State(); got != interact.StateDone {
		t.Fatalf("state = %v, want done", got)
	}
	if sent := conn.SentLines(); len(sent) != 0 {
		t.Errorf("sent = %v, want nothing", sent)
	}
}

func TestLoginSecondPasswordPromptConsumesQueue(t *testing.T) {
	conn := testutil.NewFakeConnection("dev")
	l := newLogin(t, conn, interact.Config{
		Login:     "alice",
		Passwords: []string{"first", "second"},
	})

	conn.FeedPrompt("login: ")
	conn.FeedPrompt("Password: ")
	conn.FeedPrompt("Password: ")
	conn.FeedPrompt("host:~$ ")

	if got := l.State(); got != interact.StateDone {
		t.Fatalf("state = %v, want done", got)
	}
	sent := conn.SentLines()
	want := []string{"alice", "first", "second"}
	if len(sent) != len(want) {
		t.Fatalf("sent = %v, want %v", sent, want)
	}
	for i := range want {
		if sent[i] != want[i] {
			t.Errorf("sent[%d] = %q, want %q", i, sent[i], want[i])
		}
	}
}

func TestLoginRepeatsLastPasswordByDefault(t *testing.T) {
	conn := testutil.NewFakeConnection("dev")
	l := newLogin(t, conn, interact.Config{
		Passwords: []string{"only"},
	})

	conn.FeedPrompt("Password: ")
	conn.FeedPrompt("Password: ")
	conn.FeedPrompt("host:~$ ")

	if got := l.State(); got != interact.StateDone {
		t.Fatalf("state = %v, want done", got)
	}
	sent := conn.SentLines()
	if len(sent) != 2 || sent[0] != "only" || sent[1] != "only" {
		t.Errorf("sent = %v, want the password twice", sent)
	}
}

func TestLoginExhaustedPasswordsFail(t *testing.T) {
	conn := testutil.NewFakeConnection("dev")
	l := newLogin(t, conn, interact.Config{
		Passwords:      []string{"only"},
		RepeatPassword: boolPtr(false),
	})

	conn.FeedPrompt("Password: ")
	conn.FeedPrompt("Password: ")

	if !l.Done() {
		t.Fatal("login not done after password queue exhausted")
	}
	_, err := l.Result()
	if !errors.Is(err, interact.ErrNoMorePasswords) {
		t.Fatalf("Result = %v, want ErrNoMorePasswords", err)
	}
	var nmp *interact.NoMorePasswordsError
	if !errors.As(err, &nmp) {
		t.Fatalf("Result error type = %T, want *NoMorePasswordsError", err)
	}
	if nmp.Consumed != 1 {
		t.Errorf("Consumed = %d, want 1", nmp.Consumed)
	}
}

func TestLoginFailurePatternImmediate(t *testing.T) {
	conn := testutil.NewFakeConnection("dev")
	l := newLogin(t, conn, interact.Config{
		Login:           "alice",
		Passwords:       []string{"wrong"},
		FailurePatterns: []*regexp.Regexp{regexp.MustCompile(`Permission denied`)},
	})

	conn.FeedPrompt("login: ")
	conn.FeedPrompt("password: ")
	conn.FeedFull("Permission denied, please try again.")

	if !l.Done() {
		t.Fatal("login not done after failure indication")
	}
	_, err := l.Result()
	if !errors.Is(err, interact.ErrLoginFailed) {
		t.Fatalf("Result = %v, want ErrLoginFailed", err)
	}
}

func TestLoginFailureWaitsForBasePrompt(t *testing.T) {
	conn := testutil.NewFakeConnection("dev")
	l := newLogin(t, conn, interact.Config{
		Login:           "alice",
		Passwords:       []string{"wrong"},
		BasePattern:     regexp.MustCompile(`local% $`),
		FailurePatterns: []*regexp.Regexp{regexp.MustCompile(`closed by foreign host`)},
	})

	conn.FeedFull("Connection closed by foreign host.")
	if l.Done() {
		t.Fatal("failure reported before the base prompt returned")
	}

	conn.FeedPrompt("local% ")
	if !l.Done() {
		t.Fatal("failure not reported at the base prompt")
	}
	var fe *interact.FailedError
	if _, err := l.Result(); !errors.As(err, &fe) {
		t.Fatalf("Result error type want *FailedError")
	} else if fe.Line != "Connection closed by foreign host." {
		t.Errorf("FailedError.Line = %q", fe.Line)
	}
}

func TestLoginBannerNudgesNewline(t *testing.T) {
	conn := testutil.NewFakeConnection("dev")
	l := newLogin(t, conn, interact.Config{
		Passwords: []string{"secret"},
	})

	conn.FeedFull("Trying 10.0.0.1...", "Connected to 10.0.0.1.")
	if got := l.State(); got != interact.StateAwaitAny {
		t.Fatalf("state after banner = %v, want await", got)
	}
	sent := conn.SentLines()
	if len(sent) != 2 || sent[0] != "" || sent[1] != "" {
		t.Errorf("sent = %q, want two bare newlines", sent)
	}
}

func TestLoginSetupCommands(t *testing.T) {
	conn := testutil.NewFakeConnection("dev")
	l := newLogin(t, conn, interact.Config{
		Login:         "alice",
		Passwords:     []string{"secret"},
		SetTimeoutCmd: "export TMOUT=0",
		SetPromptCmd:  `export PS1="remote# "`,
		TargetPattern: regexp.MustCompile(`[$#] $`),
	})

	conn.FeedPrompt("login: ")
	conn.FeedPrompt("password: ")
	conn.FeedPrompt("host:~$ ")
	if got := l.State(); got == interact.StateDone {
		t.Fatal("done before setup commands ran")
	}
	conn.FeedPrompt("host:~$ ")
	conn.FeedPrompt("remote# ")

	if got := l.State(); got != interact.StateDone {
		t.Fatalf("state = %v, want done", got)
	}
	sent := conn.SentLines()
	want := []string{"alice", "secret", "export TMOUT=0", `export PS1="remote# "`}
	if len(sent) != len(want) {
		t.Fatalf("sent = %v, want %v", sent, want)
	}
	for i := range want {
		if sent[i] != want[i] {
			t.Errorf("sent[%d] = %q, want %q", i, sent[i], want[i])
		}
	}
}
