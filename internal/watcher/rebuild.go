package watcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
)

// Rebuilder regenerates the site from the current bulletin records.
type Rebuilder interface {
	Rebuild(ctx context.Context) error
}

// NopRebuilder does nothing. It is used when no rebuild command is set.
type NopRebuilder struct{}

func (NopRebuilder) Rebuild(context.Context) error { return nil }

// RebuilderFunc adapts a function to Rebuilder.
type RebuilderFunc func(ctx context.Context) error

func (f RebuilderFunc) Rebuild(ctx context.Context) error { return f(ctx) }

// CommandRebuilder runs an external command from the site root.
type CommandRebuilder struct {
	Dir    string
	Name   string
	Args   []string
	Logger *slog.Logger
}

// NewCommandRebuilder splits command on whitespace. An empty command yields
// a NopRebuilder.
func NewCommandRebuilder(dir, command string, logger *slog.Logger) Rebuilder {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return NopRebuilder{}
	}
	return &CommandRebuilder{Dir: dir, Name: fields[0], Args: fields[1:], Logger: logger}
}

// Rebuild runs the command and waits for it. Output is captured and
// included in the error when the command fails.
func (r *CommandRebuilder) Rebuild(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, r.Name, r.Args...)
	cmd.Dir = r.Dir

	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("rebuild %s: exit %d: %s", r.Name, exitErr.ExitCode(), strings.TrimSpace(out.String()))
		}
		return fmt.Errorf("rebuild %s: %w", r.Name, err)
	}
	if r.Logger != nil && out.Len() > 0 {
		r.Logger.Debug("rebuild output", "command", r.Name, "output", strings.TrimSpace(out.String()))
	}
	return nil
}
