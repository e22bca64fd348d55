package main

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wireline-network/wireline/pkg/command"
	"github.com/wireline-network/wireline/pkg/connection"
	"github.com/wireline-network/wireline/pkg/journal"
	"github.com/wireline-network/wireline/pkg/observer"
	"github.com/wireline-network/wireline/pkg/profile"
	"github.com/wireline-network/wireline/pkg/runner"
)

var replayCmd = &cobra.Command{
	Use:   "replay <command string>",
	Short: "Replay a command against a recorded session capture",
	Long: `Replay runs one command observer against a raw session capture.

The capture stands in for the device: its bytes are pumped through the
connection feed, the command's parser consumes them, and the captured
result is printed. Use it to validate a profile's prompt pattern against
real device output.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, conn, cleanup, err := openSession()
		if err != nil {
			return err
		}
		defer cleanup()

		run := runner.New()
		defer run.Shutdown()

		cmdStr := strings.Join(args, " ")
		capture := command.NewCapture(cmdStr, regexp.MustCompile(p.Prompt))
		c, err := command.New(conn, capture, command.WithObserverOptions(
			observer.WithTimeout(p.Timeout.Std()),
			observer.WithInactivityTimeout(p.InactivityTimeout.Std()),
			observer.WithTerminatingTimeout(p.TerminatingTimeout.Std()),
		))
		if err != nil {
			return err
		}
		if err := c.Start(); err != nil {
			return err
		}
		if err := run.Submit(c); err != nil {
			return err
		}

		if err := pumpTranscript(conn); err != nil {
			return err
		}
		if err := run.WaitFor(c, 0); err != nil {
			return err
		}

		v, err := c.Result()
		if err != nil {
			return fmt.Errorf("replaying %q: %w", cmdStr, err)
		}
		for _, line := range v.(*command.Result).Lines() {
			fmt.Println(line)
		}
		return nil
	},
}

// openSession loads the profile and builds the replay connection, wiring a
// transcript journal when requested. The returned cleanup closes whatever
// was opened.
func openSession() (*profile.Profile, *connection.Observable, func(), error) {
	if profilePath == "" {
		return nil, nil, nil, fmt.Errorf("--profile is required")
	}
	if transcriptPath == "" {
		return nil, nil, nil, fmt.Errorf("--transcript is required")
	}
	p, err := profile.Load(profilePath)
	if err != nil {
		return nil, nil, nil, err
	}

	conn := connection.NewObservable(p.Name, io.Discard)
	cleanup := func() {}
	if journalPath != "" {
		f, err := os.Create(journalPath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("opening journal: %w", err)
		}
		rec := journal.NewRecorder(p.Name, journal.NewWriterSink(f))
		conn.Subscribe(rec)
		conn.OnSend(rec.Sent)
		cleanup = func() { _ = rec.Close() }
	}
	return p, conn, cleanup, nil
}

// pumpTranscript feeds the raw capture through the connection, chunked the
// way a real transport would deliver it.
func pumpTranscript(conn *connection.Observable) error {
	f, err := os.Open(transcriptPath)
	if err != nil {
		return fmt.Errorf("opening transcript: %w", err)
	}
	defer f.Close()
	return conn.Pump(f)
}
