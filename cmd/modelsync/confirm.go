package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/markvii/modelsync/internal/ui"
)

// confirm asks a yes/no question. Terminals get an interactive prompt;
// otherwise a line is read from the app's input. Ctrl+C at the prompt
// returns errInterrupted.
func (a *app) confirm(ctx context.Context, question string) (bool, error) {
	if !a.interactive {
		return confirmLine(ctx, a.in, a.out, question)
	}

	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(question).
				Affirmative("Yes").
				Negative("No").
				Value(&ok),
		),
	).WithTheme(promptTheme()).RunWithContext(ctx)
	switch {
	case errors.Is(err, huh.ErrUserAborted), ctx.Err() != nil:
		return false, errInterrupted
	case err != nil:
		return false, fmt.Errorf("prompt failed: %w", err)
	}
	return ok, nil
}

// promptTheme follows the console color setting so --no-color and NO_COLOR
// also apply to the prompt.
func promptTheme() *huh.Theme {
	if !ui.ColorEnabled() {
		return huh.ThemeBase()
	}
	return huh.ThemeCharm()
}

// confirmLine prints "question (y/n): " and reads one answer. Only "y", in
// either case, accepts; end of input declines.
func confirmLine(ctx context.Context, in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s (y/n): ", question)

	type answer struct {
		line string
		err  error
	}
	answers := make(chan answer, 1)
	go func() {
		line, err := bufio.NewReader(in).ReadString('\n')
		answers <- answer{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		return false, errInterrupted
	case ans := <-answers:
		if ans.err != nil && !errors.Is(ans.err, io.EOF) {
			return false, fmt.Errorf("failed to read answer: %w", ans.err)
		}
		if ans.err != nil && ans.line == "" {
			fmt.Fprintln(out)
		}
		switch strings.ToLower(strings.TrimSpace(ans.line)) {
		case "y":
			return true, nil
		default:
			return false, nil
		}
	}
}
