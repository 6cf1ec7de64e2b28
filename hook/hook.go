// Package hook runs a user command for each cover written.
package hook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/google/shlex"
)

const markerPath = "<path>"

var ErrNoCommand = errors.New("no command provided")

type Command struct {
	command string
	args    []string
}

// New parses conf as a shell-like command line. Any "<path>" in its arguments is
// replaced by the path of the saved cover.
func New(conf string) (Command, error) {
	parts, err := shlex.Split(conf)
	if err != nil {
		return Command{}, fmt.Errorf("split command: %w", err)
	}
	if len(parts) == 0 {
		return Command{}, ErrNoCommand
	}
	return Command{command: parts[0], args: parts[1:]}, nil
}

func (c Command) Run(ctx context.Context, path string) error {
	args := make([]string, 0, len(c.args))
	for _, arg := range c.args {
		args = append(args, strings.ReplaceAll(arg, markerPath, path))
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, c.command, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("run cmd: %w: %s", err, msg)
		}
		return fmt.Errorf("run cmd: %w", err)
	}
	return nil
}

func (c Command) String() string {
	args := fmt.Sprintf("%q", append([]string{c.command}, c.args...))
	args = strings.TrimPrefix(args, "[")
	args = strings.TrimSuffix(args, "]")
	return args
}
