package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/aretw0/parley/internal/presentation/tui"
	"github.com/aretw0/parley/pkg/domain"
)

// Session is the part of the Manager the Player drives.
type Session interface {
	Begin(addr string) error
	Advance() error
	SelectChoice(index int) error
	End() error
	Line() (domain.DialogueLine, bool)
	InProgress() bool
}

// Player runs a dialogue in the terminal. Lines that can continue are shown
// one after the other; choices are numbered from 1 and picked by typing the
// number. "exit", "quit" or "q" stop the dialogue.
type Player struct {
	session  Session
	in       io.Reader
	out      io.Writer
	renderer *tui.Renderer
}

// NewPlayer creates a Player reading from in and writing to out.
func NewPlayer(session Session, in io.Reader, out io.Writer, renderer *tui.Renderer) *Player {
	return &Player{session: session, in: in, out: out, renderer: renderer}
}

// Run begins a session at start and plays until the story ends, the user
// quits or ctx is cancelled. The session is always ended before returning.
func (p *Player) Run(ctx context.Context, start string) (err error) {
	if err := p.session.Begin(start); err != nil {
		return err
	}
	defer func() {
		if p.session.InProgress() {
			if endErr := p.session.End(); err == nil {
				err = endErr
			}
		}
	}()

	scanner := bufio.NewScanner(NewInterruptibleReader(p.in, ctx.Done()))

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, _ := p.session.Line()
		out, err := p.renderer.Render(line)
		if err != nil {
			return err
		}
		fmt.Fprint(p.out, out)

		switch {
		case line.Cue.CanContinue():
			if err := p.session.Advance(); err != nil {
				return err
			}
		case line.Cue.Choice():
			index, quit, err := p.prompt(scanner, line)
			if err != nil {
				return err
			}
			if quit {
				return nil
			}
			if err := p.session.SelectChoice(index); err != nil {
				return err
			}
		default:
			return nil
		}
	}
}

// prompt reads until the user picks a valid choice number or quits.
func (p *Player) prompt(scanner *bufio.Scanner, line domain.DialogueLine) (index int, quit bool, err error) {
	for {
		fmt.Fprint(p.out, "> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return 0, false, err
			}
			fmt.Fprintln(p.out)
			return 0, true, nil
		}

		input, sanErr := SanitizeInput(scanner.Text())
		if sanErr != nil {
			fmt.Fprintf(p.out, "Input rejected: %v\n", sanErr)
			continue
		}
		input = strings.TrimSpace(input)
		switch strings.ToLower(input) {
		case "exit", "quit", "q":
			return 0, true, nil
		case "":
			continue
		}

		n, convErr := strconv.Atoi(input)
		if convErr != nil || n < 1 || n > len(line.Choices) {
			fmt.Fprintf(p.out, "Pick a number between 1 and %d.\n", len(line.Choices))
			continue
		}
		return line.Choices[n-1].Index, false, nil
	}
}
