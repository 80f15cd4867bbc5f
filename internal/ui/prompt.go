package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrNoInput is returned when input ends before a valid answer is given.
var ErrNoInput = errors.New("no input")

// Prompter asks line-based questions.
type Prompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewPrompter reads answers from in and writes questions to out.
func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewReader(in), out: out}
}

// Ask prints question and reads answers until validate accepts one. An
// empty answer selects def when def is not empty. Invalid answers print the
// validation error and ask again.
func (p *Prompter) Ask(question, def string, validate func(string) error) (string, error) {
	for {
		if def != "" {
			fmt.Fprintf(p.out, "%s (press enter to use %s): ", question, Bold(def))
		} else {
			fmt.Fprintf(p.out, "%s: ", question)
		}

		line, err := p.in.ReadString('\n')
		answer := strings.TrimSpace(line)
		if err != nil && answer == "" {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(p.out)
				return "", ErrNoInput
			}
			return "", fmt.Errorf("reading answer: %w", err)
		}

		if answer == "" {
			answer = def
		}
		if validate == nil {
			return answer, nil
		}
		if verr := validate(answer); verr != nil {
			fmt.Fprintf(p.out, "%s %v\n", Red("✗"), verr)
			if err != nil {
				return "", ErrNoInput
			}
			continue
		}
		return answer, nil
	}
}

// Confirm asks a yes/no question. An empty answer selects def.
func (p *Prompter) Confirm(question string, def bool, parse func(string) (bool, error)) (bool, error) {
	d := "no"
	if def {
		d = "yes"
	}
	var result bool
	_, err := p.Ask(question+" [y/n]", d, func(s string) error {
		v, err := parse(s)
		if err != nil {
			return err
		}
		result = v
		return nil
	})
	return result, err
}
