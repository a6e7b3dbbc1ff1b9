// Package confirm gates destructive actions behind an explicit yes/no answer.
//
// A Confirmer may block for as long as it needs to; none of the implementations here time out.
package confirm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
)

// Confirmer decides whether a destructive action described by message may proceed.
type Confirmer interface {
	Confirm(message string) (bool, error)
}

// Func adapts a plain decision function into a Confirmer, e.g., for automated callers
type Func func(message string) (bool, error)

func (f Func) Confirm(message string) (bool, error) {
	return f(message)
}

var (
	// Always approves every action without prompting
	Always Confirmer = Func(func(string) (bool, error) { return true, nil })
	// Never declines every action without prompting
	Never Confirmer = Func(func(string) (bool, error) { return false, nil })

	// ErrNoAnswer is returned when the input ends before a recognized answer was read
	ErrNoAnswer = errors.New("input ended before a yes/no answer was given")
)

// ParseAnswer recognizes Y/YES as yes and N/NO as no, ignoring case and surrounding whitespace.
// ok is false for anything else.
func ParseAnswer(input string) (yes bool, ok bool) {
	switch strings.ToUpper(strings.TrimSpace(input)) {
	case "Y", "YES":
		return true, true
	case "N", "NO":
		return false, true
	default:
		return false, false
	}
}

type linePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter returns a Confirmer that writes the prompt to out and reads one line at a time from
// in until a recognized answer arrives. Unrecognized lines re-prompt indefinitely.
func NewLinePrompter(in io.Reader, out io.Writer) Confirmer {
	return &linePrompter{in: bufio.NewReader(in), out: out}
}

func (p *linePrompter) Confirm(message string) (bool, error) {
	for {
		if _, err := fmt.Fprintf(p.out, "%s y/N: ", message); err != nil {
			return false, fmt.Errorf("writing prompt: %w", err)
		}
		line, err := p.in.ReadString('\n')
		if yes, ok := ParseAnswer(line); ok {
			return yes, nil
		}
		if errors.Is(err, io.EOF) {
			return false, ErrNoAnswer
		} else if err != nil {
			return false, fmt.Errorf("reading answer: %w", err)
		}
	}
}

type terminalPrompter struct {
	stdin  io.ReadCloser
	stdout io.WriteCloser
}

// NewTerminalPrompter returns a Confirmer backed by an interactive promptui prompt. The prompt refuses
// to submit until the answer is one of y, yes, n or no.
// A nil stdin or stdout falls back to the process' terminal.
func NewTerminalPrompter(stdin io.ReadCloser, stdout io.WriteCloser) Confirmer {
	return &terminalPrompter{stdin: stdin, stdout: stdout}
}

func (p *terminalPrompter) Confirm(message string) (bool, error) {
	// promptui requires the label to be one line
	label := strings.ReplaceAll(message, "\n", " ")
	if len(label) == 0 {
		label = "Continue?"
	}
	result, err := (&promptui.Prompt{
		Label:  label + " y/N",
		Stdin:  p.stdin,
		Stdout: p.stdout,
		Validate: func(input string) error {
			if _, ok := ParseAnswer(input); !ok {
				return errors.New("answer y/yes or n/no")
			}
			return nil
		},
	}).Run()
	if err != nil {
		return false, err
	}
	yes, _ := ParseAnswer(result)
	return yes, nil
}
