/*
Package parley orchestrates branching dialogue on top of a narrative interpreter.

The interpreter owns the story: it knows how to continue, offer choices and jump
to a knot. Parley owns the session: it sequences interpreter calls into discrete
lines, parses the tags attached to them, validates jump targets before they are
committed, and mirrors the interpreter's typed globals into a serializable
snapshot the host can save between sessions.

# Concept

A host drives a Manager with four calls: Begin, Advance, SelectChoice and End.
After each call the current DialogueLine and its Cue tell the host what to do
next: continue, pick one of the line's choices, or stop.

# Usage

	package main

	import (
		"fmt"
		"log"

		"github.com/aretw0/parley"
		"github.com/aretw0/parley/pkg/variables"
	)

	func main() {
		mgr, err := parley.New("./story.yaml",
			parley.WithVariableBridge(variables.NewBridge()),
		)
		if err != nil {
			log.Fatal(err)
		}

		if err := mgr.Begin(""); err != nil {
			log.Fatal(err)
		}

		for mgr.InProgress() {
			line, _ := mgr.Line()
			fmt.Println(line.Text)

			switch {
			case line.Cue.Choice():
				err = mgr.SelectChoice(line.Choices[0].Index)
			case line.Cue.CanContinue():
				err = mgr.Advance()
			default:
				err = mgr.End()
			}
			if err != nil {
				log.Fatal(err)
			}
		}
	}

# Stories

The bundled interpreter (package story) reads YAML or JSON story files. A
directory is read through Loam, one markdown document per knot. Any other
interpreter can be plugged in with WithInterpreter as long as it implements
ports.Interpreter.

# Errors

Every failure is a typed error from package domain. Use errors.Is with the
sentinels, or domain.Classify to map an error to a transport status.
*/
package parley
