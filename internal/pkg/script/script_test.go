package script

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const example = `
steps:
  - clear
  - text: "Hi ❤"
  - cursor: 16
  - instruction: 0x0C
  - data: 0x41
  - wait: 250
  - demo
`

type fakeDisplay struct {
	calls []string
}

func (d *fakeDisplay) Clear()                   { d.calls = append(d.calls, "clear") }
func (d *fakeDisplay) Demo()                    { d.calls = append(d.calls, "demo") }
func (d *fakeDisplay) SetCursor(position uint8) { d.calls = append(d.calls, fmt.Sprintf("cursor %d", position)) }
func (d *fakeDisplay) SendString(text string)   { d.calls = append(d.calls, fmt.Sprintf("text %q", text)) }
func (d *fakeDisplay) SendInstruction(b byte)   { d.calls = append(d.calls, fmt.Sprintf("instruction 0x%02x", b)) }
func (d *fakeDisplay) SendData(b byte)          { d.calls = append(d.calls, fmt.Sprintf("data 0x%02x", b)) }

type fakeSleeper struct {
	d *fakeDisplay
}

func (s fakeSleeper) WaitMs(ms uint) { s.d.calls = append(s.d.calls, fmt.Sprintf("wait %d", ms)) }

func TestParseData(t *testing.T) {
	s, err := ParseData([]byte(example))
	require.NoError(t, err)

	assert.Equal(t, []Step{
		{Op: OpClear},
		{Op: OpText, Text: "Hi ❤"},
		{Op: OpCursor, Value: 16},
		{Op: OpInstruction, Value: 0x0C},
		{Op: OpData, Value: 0x41},
		{Op: OpWait, Value: 250},
		{Op: OpDemo},
	}, s.Steps)
}

func TestParseDataErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		data string
		msg  string
	}{
		{name: "unknown scalar", data: "steps:\n  - reboot\n", msg: "unknown step"},
		{name: "unknown key", data: "steps:\n  - scroll: 1\n", msg: "unknown step"},
		{name: "two keys", data: "steps:\n  - {cursor: 1, data: 2}\n", msg: "exactly one key"},
		{name: "sequence", data: "steps:\n  - [1, 2]\n", msg: "single key mapping"},
		{name: "not a number", data: "steps:\n  - cursor: left\n", msg: "cursor"},
		{name: "byte range", data: "steps:\n  - data: 256\n", msg: "out of range"},
		{name: "negative", data: "steps:\n  - wait: -1\n", msg: "out of range"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseData([]byte(tc.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestRun(t *testing.T) {
	s, err := ParseData([]byte(example))
	require.NoError(t, err)

	d := &fakeDisplay{}
	r := Runner{
		Display: d,
		Sleeper: fakeSleeper{d: d},
		Replace: func(s string) string { return strings.ReplaceAll(s, "❤", "\x00") },
	}
	require.NoError(t, r.Run(context.Background(), s))

	assert.Equal(t, []string{
		"clear",
		`text "Hi \x00"`,
		"cursor 16",
		"instruction 0x0c",
		"data 0x41",
		"wait 250",
		"demo",
	}, d.calls)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := &fakeDisplay{}
	err := Runner{Display: d, Sleeper: fakeSleeper{d: d}}.Run(ctx, Script{Steps: []Step{{Op: OpClear}}})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, d.calls)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(example), 0o666))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, s.Steps, 7)

	_, err = Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "demo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(example), 0o666))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes, err := Watch(ctx, path, nil)
	require.NoError(t, err)

	// unrelated files are ignored
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("steps: []"), 0o666))
	require.NoError(t, os.WriteFile(path, []byte("steps:\n  - clear\n"), 0o666))

	select {
	case <-changes:
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}

	cancel()
	for range changes {
	}
}
