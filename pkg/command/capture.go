package command

import (
	"regexp"
	"strings"
)

// Capture is the generic "send a command, capture everything until the
// prompt returns" handler. It skips the echoed command line, accumulates
// full lines, and completes when the prompt regex matches — prompts arrive
// as unterminated fragments, so the match is attempted on partial lines
// too.
type Capture struct {
	Cmd    string
	Prompt *regexp.Regexp

	echoSeen bool
}

// NewCapture builds a capture handler for cmd, completing on prompt.
func NewCapture(cmd string, prompt *regexp.Regexp) *Capture {
	return &Capture{Cmd: cmd, Prompt: prompt}
}

func (c *Capture) BuildCommandString() string { return c.Cmd }

func (c *Capture) OnLine(res *Result, line string, fullLine bool) error {
	// Echo of the command itself comes back first on most devices.
	if !c.echoSeen && fullLine && strings.Contains(line, c.Cmd) {
		c.echoSeen = true
		return nil
	}
	if c.Prompt.MatchString(line) {
		return ParsingDone
	}
	if fullLine {
		res.AddLine(line)
	}
	return nil
}
