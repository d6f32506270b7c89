package cli_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/parley/internal/cli"
)

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "2", "2"},
		{"tab kept", "a\tb", "a\tb"},
		{"escape dropped", "\x1b[31m1\x1b[0m", "[31m1[0m"},
		{"null dropped", "1\x00", "1"},
		{"bell dropped", "q\x07", "q"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cli.SanitizeInput(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeInput_Limits(t *testing.T) {
	_, err := cli.SanitizeInput(strings.Repeat("1", cli.DefaultMaxInputSize))
	assert.NoError(t, err)

	_, err = cli.SanitizeInput(strings.Repeat("1", cli.DefaultMaxInputSize+1))
	assert.ErrorIs(t, err, cli.ErrInputTooLarge)

	t.Setenv(cli.EnvMaxInputSize, "4")
	_, err = cli.SanitizeInput("12345")
	assert.ErrorIs(t, err, cli.ErrInputTooLarge)

	_, err = cli.SanitizeInput("\xff")
	assert.ErrorIs(t, err, cli.ErrInvalidUTF8)
}
