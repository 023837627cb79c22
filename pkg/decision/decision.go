// Package decision abstracts the human-in-the-loop confirmations the merge
// logic depends on, so batch runs can substitute a deterministic policy.
package decision

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Channel is the synchronous decision surface the resolvers escalate to.
// Every call blocks until an answer is available.
type Channel interface {
	// Confirm asks a yes/no question.
	Confirm(question string) bool
	// Text asks for a free-form value; ok is false when none was given.
	Text(question string) (value string, ok bool)
	// Choose asks to pick one of the options; ok is false when declined.
	Choose(question string, options []string) (choice string, ok bool)
}

// Policy is a non-interactive Channel with a fixed answer. Text always
// declines: a policy can approve or reject, never invent values.
type Policy struct {
	Accept bool
}

// Confirm returns the configured answer.
func (p Policy) Confirm(string) bool { return p.Accept }

// Text declines.
func (p Policy) Text(string) (string, bool) { return "", false }

// Choose picks the first option when the policy accepts, otherwise declines.
func (p Policy) Choose(_ string, options []string) (string, bool) {
	if !p.Accept || len(options) == 0 {
		return "", false
	}
	return options[0], true
}

// AcceptAll approves every confirmation.
func AcceptAll() Channel { return Policy{Accept: true} }

// RejectAll declines every confirmation.
func RejectAll() Channel { return Policy{Accept: false} }

// Terminal prompts on an io.Writer and reads answers from an io.Reader,
// normally stdout/stdin.
type Terminal struct {
	reader *bufio.Reader
	writer io.Writer
}

// NewTerminal builds a Terminal channel.
func NewTerminal(r io.Reader, w io.Writer) *Terminal {
	return &Terminal{reader: bufio.NewReader(r), writer: w}
}

// Confirm prints the question and accepts y/yes (case-insensitive).
func (t *Terminal) Confirm(question string) bool {
	fmt.Fprintf(t.writer, "%s [y/N]: ", question)
	line, err := t.reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// Text prints the question and returns the trimmed answer; empty input
// counts as no answer.
func (t *Terminal) Text(question string) (string, bool) {
	fmt.Fprintf(t.writer, "%s: ", question)
	line, err := t.reader.ReadString('\n')
	if err != nil {
		return "", false
	}
	value := strings.TrimSpace(line)
	return value, value != ""
}

// Choose lists numbered options and reads the picked index; anything else
// counts as a decline.
func (t *Terminal) Choose(question string, options []string) (string, bool) {
	fmt.Fprintln(t.writer, question)
	for i, option := range options {
		fmt.Fprintf(t.writer, "  %d) %s\n", i+1, option)
	}
	fmt.Fprintf(t.writer, "choice [1-%d, empty to skip]: ", len(options))

	line, err := t.reader.ReadString('\n')
	if err != nil {
		return "", false
	}
	var index int
	if _, err := fmt.Sscanf(strings.TrimSpace(line), "%d", &index); err != nil {
		return "", false
	}
	if index < 1 || index > len(options) {
		return "", false
	}
	return options[index-1], true
}
