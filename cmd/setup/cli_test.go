package setup

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyCmd(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "report total",
			args: []string{"key", "_total", "2024"},
			want: "74a3102744a392f3ac5a4573803b91d0",
		},
		{
			name: "no arguments",
			args: []string{"key", "_regions"},
			want: "2fab5dcf5fdee88b9329bc891786dd13",
		},
		{
			name: "explicit tag",
			args: []string{"key", "--tag", "Calc", "_foo", "1", "2"},
			want: "36232a61ed9dac456a9ae94cdf0e6dee",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			cmd := NewRootCmd()
			cmd.SetOut(&out)
			cmd.SetArgs(tt.args)

			require.NoError(t, cmd.Execute())
			assert.Equal(t, tt.want+"\n", out.String())
		})
	}
}

func TestKeyCmd_RequiresMethod(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"key"})

	assert.Error(t, cmd.Execute())
}

func TestParseArg(t *testing.T) {
	assert.Equal(t, json.Number("2024"), parseArg("2024"))
	assert.Equal(t, "eu", parseArg(`"eu"`))
	assert.Equal(t, "eu", parseArg("eu"))
	assert.Equal(t, "2024 2025", parseArg("2024 2025"))
	assert.Equal(t, map[string]any{"from": "2024-01-01"}, parseArg(`{"from":"2024-01-01"}`))
}
