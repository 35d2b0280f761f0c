package speech

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
)

// Command speaks by running an external program such as espeak or say with
// the text as its final argument. An utterance completes when the process
// exits; Stop kills the process.
type Command struct {
	name string
	args []string
	log  *slog.Logger

	slot slot
}

// NewCommand creates a Command running name with args followed by the text.
func NewCommand(name string, args []string, log *slog.Logger) *Command {
	if log == nil {
		log = slog.Default()
	}
	return &Command{name: name, args: args, log: log}
}

func (c *Command) Speak(text string, onComplete func()) {
	ctx, cancel := context.WithCancel(context.Background())
	u := &utterance{onComplete: onComplete}
	u.setCancel(cancel)
	preempt(c.slot.swap(u))

	args := append(append([]string(nil), c.args...), text)
	cmd := exec.CommandContext(ctx, c.name, args...)
	if err := cmd.Start(); err != nil {
		c.log.Warn("speech command failed to start", "command", c.name, "error", err)
		c.slot.release(u)
		cancel()
		u.finish()
		return
	}

	go func() {
		err := cmd.Wait()
		var exitErr *exec.ExitError
		if err != nil && ctx.Err() == nil && errors.As(err, &exitErr) {
			c.log.Warn("speech command exited with error", "command", c.name, "exit_code", exitErr.ExitCode())
		}
		c.slot.release(u)
		cancel()
		u.finish()
	}()
}

func (c *Command) Stop() {
	preempt(c.slot.swap(nil))
}
