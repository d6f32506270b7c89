package tests

import (
	"testing"

	"github.com/aretw0/parley/pkg/domain"
	"github.com/aretw0/parley/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// InterpreterContractTest is a reusable test suite that verifies if an adapter complies with ports.Interpreter.
// newInterpreter must return a fresh interpreter whose story starts with linear content.
func InterpreterContractTest(t *testing.T, newInterpreter func(t *testing.T) ports.Interpreter) {
	t.Helper()

	t.Run("Node table", func(t *testing.T) {
		interp := newInterpreter(t)
		assert.False(t, interp.KnotExists("non-existent-knot"))
		assert.False(t, interp.StitchExists("non-existent-knot", "x"))

		if lister, ok := interp.(ports.KnotLister); ok {
			for _, knot := range lister.Knots() {
				assert.True(t, interp.KnotExists(knot), "listed knot %q must exist", knot)
				for _, stitch := range lister.Stitches(knot) {
					assert.True(t, interp.StitchExists(knot, stitch), "listed stitch %q.%q must exist", knot, stitch)
				}
			}
		}
	})

	t.Run("Globals", func(t *testing.T) {
		interp := newInterpreter(t)
		for _, name := range interp.GlobalNames() {
			v, err := interp.Global(name)
			require.NoError(t, err, "declared global %q must be readable", name)
			require.NoError(t, interp.SetGlobal(name, v), "writing back %q must succeed", name)

			var wrong domain.Value = domain.Bool(true)
			if v.Kind() == domain.KindBool {
				wrong = domain.Int(1)
			}
			assert.ErrorIs(t, interp.SetGlobal(name, wrong), domain.ErrTypeMismatch)
		}

		_, err := interp.Global("non-existent-variable")
		assert.ErrorIs(t, err, domain.ErrUnknownVariable)
		assert.ErrorIs(t, interp.SetGlobal("non-existent-variable", domain.Int(1)), domain.ErrUnknownVariable)
	})

	t.Run("Continue until choice or end", func(t *testing.T) {
		interp := newInterpreter(t)
		require.True(t, interp.CanContinue(), "a fresh story must be able to continue")

		for steps := 0; interp.CanContinue() && len(interp.CurrentChoices()) == 0; steps++ {
			require.Less(t, steps, 1000, "story did not settle")
			_, err := interp.Continue()
			require.NoError(t, err)
		}

		if choices := interp.CurrentChoices(); len(choices) > 0 {
			assert.Error(t, interp.Choose(-1))
			require.NoError(t, interp.Choose(choices[0].Index))
		}
	})

	t.Run("ResetState rewinds", func(t *testing.T) {
		interp := newInterpreter(t)
		first, err := interp.Continue()
		require.NoError(t, err)

		interp.ResetState()
		require.True(t, interp.CanContinue())
		again, err := interp.Continue()
		require.NoError(t, err)
		assert.Equal(t, first, again)
	})

	t.Run("Unsubscribe is safe", func(t *testing.T) {
		interp := newInterpreter(t)
		unsubscribe := interp.SubscribeVariableChanged(func(string, domain.Value) error { return nil })
		require.NotNil(t, unsubscribe)
		unsubscribe()
		unsubscribe()
	})
}
