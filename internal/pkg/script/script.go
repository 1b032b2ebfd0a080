// Package script replays YAML display scripts through the public LCD operations.
//
//	steps:
//	  - clear
//	  - text: "Hello"
//	  - cursor: 16
//	  - instruction: 0x0C
//	  - data: 0x41
//	  - wait: 500
//	  - demo
package script

import (
	"context"
	"fmt"
	"os"

	"github.com/gethiox/lcd4bit/internal/pkg/delay"
	"github.com/gethiox/lcd4bit/internal/pkg/logger"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type Op int

const (
	OpClear Op = iota
	OpDemo
	OpText
	OpCursor
	OpInstruction
	OpData
	OpWait
)

func (o Op) String() string {
	switch o {
	case OpClear:
		return "clear"
	case OpDemo:
		return "demo"
	case OpText:
		return "text"
	case OpCursor:
		return "cursor"
	case OpInstruction:
		return "instruction"
	case OpData:
		return "data"
	case OpWait:
		return "wait"
	default:
		return "unknown"
	}
}

type Step struct {
	Op    Op
	Value int
	Text  string
}

func (s *Step) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		switch value.Value {
		case "clear":
			s.Op = OpClear
		case "demo":
			s.Op = OpDemo
		default:
			return fmt.Errorf("line %d: unknown step \"%s\"", value.Line, value.Value)
		}
		return nil
	case yaml.MappingNode:
		if len(value.Content) != 2 {
			return fmt.Errorf("line %d: step must have exactly one key", value.Line)
		}
	default:
		return fmt.Errorf("line %d: step must be a name or a single key mapping", value.Line)
	}

	key, arg := value.Content[0], value.Content[1]
	if key.Value == "text" {
		s.Op = OpText
		return arg.Decode(&s.Text)
	}

	var limit int
	switch key.Value {
	case "cursor":
		s.Op, limit = OpCursor, 0xFF
	case "instruction":
		s.Op, limit = OpInstruction, 0xFF
	case "data":
		s.Op, limit = OpData, 0xFF
	case "wait":
		s.Op, limit = OpWait, 60_000
	default:
		return fmt.Errorf("line %d: unknown step \"%s\"", key.Line, key.Value)
	}

	if err := arg.Decode(&s.Value); err != nil {
		return fmt.Errorf("line %d: %s: %w", arg.Line, key.Value, err)
	}
	if s.Value < 0 || s.Value > limit {
		return fmt.Errorf("line %d: %s value %d out of range 0-%d", arg.Line, key.Value, s.Value, limit)
	}
	return nil
}

type Script struct {
	Steps []Step `yaml:"steps"`
}

func ParseData(data []byte) (Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Script{}, fmt.Errorf("cannot decode script: %w", err)
	}
	return s, nil
}

func Load(path string) (Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Script{}, fmt.Errorf("cannot read \"%s\" script: %w", path, err)
	}
	return ParseData(data)
}

// Display is the set of LCD operations a script can use.
type Display interface {
	Clear()
	Demo()
	SetCursor(position uint8)
	SendString(text string)
	SendInstruction(b byte)
	SendData(b byte)
}

type Runner struct {
	Display Display
	Sleeper delay.Sleeper
	// Replace rewrites text before it is sent, e.g. glyph.Set.Replace.
	Replace func(string) string
	Log     *zap.Logger
}

// Run executes the steps in order. Cancellation is checked between steps only.
func (r Runner) Run(ctx context.Context, s Script) error {
	log := r.Log
	if log == nil {
		log = zap.NewNop()
	}

	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("script stopped at step %d: %w", i, err)
		}
		log.Info(fmt.Sprintf("running step %d", i), logger.Debug, zap.String("step", step.Op.String()))

		switch step.Op {
		case OpClear:
			r.Display.Clear()
		case OpDemo:
			r.Display.Demo()
		case OpText:
			text := step.Text
			if r.Replace != nil {
				text = r.Replace(text)
			}
			r.Display.SendString(text)
		case OpCursor:
			r.Display.SetCursor(uint8(step.Value))
		case OpInstruction:
			r.Display.SendInstruction(byte(step.Value))
		case OpData:
			r.Display.SendData(byte(step.Value))
		case OpWait:
			r.Sleeper.WaitMs(uint(step.Value))
		}
	}
	return nil
}
