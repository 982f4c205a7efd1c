package print

import (
	"bytes"
	"context"
	"testing"

	"github.com/specialistvlad/buildgridgo/internal/task"
	"github.com/specialistvlad/buildgridgo/internal/taskid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrint(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	out := &bytes.Buffer{}
	ec := &task.ExecContext{Task: taskid.MustParse(":hello"), Stdout: out}
	input := &Input{Message: "hello", Values: map[string]string{"b": "2", "a": "1"}}

	// --- Act ---
	err := Print(context.Background(), ec, input)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "hello\n      a = \"1\"\n      b = \"2\"\n", out.String())
}
