package volume

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeoutMs bounds a single mixer command.
const DefaultTimeoutMs = 2000

// Runner executes an external command and returns its combined output.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run executes name with args and returns stdout and stderr combined.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

// CommandSink sets the volume by running a platform mixer command.
type CommandSink struct {
	name      string
	runner    Runner
	timeoutMs int
	build     func(percent int) (string, []string)
}

// NewAmixerSink creates a Linux sink that runs `amixer -D <device> sset <control> N%`.
func NewAmixerSink(device, control string) *CommandSink {
	if device == "" {
		device = "pulse"
	}
	if control == "" {
		control = "Master"
	}
	return &CommandSink{
		name:      "amixer",
		runner:    ExecRunner{},
		timeoutMs: DefaultTimeoutMs,
		build: func(percent int) (string, []string) {
			return "amixer", []string{"-D", device, "sset", control, strconv.Itoa(percent) + "%"}
		},
	}
}

// NewOsascriptSink creates a macOS sink that sets the output volume via AppleScript.
func NewOsascriptSink() *CommandSink {
	return &CommandSink{
		name:      "osascript",
		runner:    ExecRunner{},
		timeoutMs: DefaultTimeoutMs,
		build: func(percent int) (string, []string) {
			return "osascript", []string{"-e", fmt.Sprintf("set volume output volume %d", percent)}
		},
	}
}

// NewNircmdSink creates a Windows sink that runs `nircmd setsysvolume N`,
// where N is the percentage scaled onto nircmd's 0-65535 range.
func NewNircmdSink() *CommandSink {
	return &CommandSink{
		name:      "nircmd",
		runner:    ExecRunner{},
		timeoutMs: DefaultTimeoutMs,
		build: func(percent int) (string, []string) {
			return "nircmd", []string{"setsysvolume", strconv.Itoa(int(float64(percent) * 655.35))}
		},
	}
}

// WithRunner replaces the command runner. Used by tests.
func (s *CommandSink) WithRunner(r Runner) *CommandSink {
	s.runner = r
	return s
}

// WithTimeout sets the per-command timeout in milliseconds.
// Values less than or equal to 0 are ignored.
func (s *CommandSink) WithTimeout(timeoutMs int) *CommandSink {
	if timeoutMs > 0 {
		s.timeoutMs = timeoutMs
	}
	return s
}

// Name returns the mixer command name.
func (s *CommandSink) Name() string {
	return s.name
}

// Command returns the command line that would be run for percent.
func (s *CommandSink) Command(percent int) (string, []string) {
	return s.build(Clamp(percent))
}

// SetOutputVolume runs the mixer command for percent.
func (s *CommandSink) SetOutputVolume(ctx context.Context, percent int) error {
	percent = Clamp(percent)

	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.timeoutMs)*time.Millisecond)
	defer cancel()

	name, args := s.build(percent)
	output, err := s.runner.Run(ctx, name, args...)
	if err == nil {
		return nil
	}

	kind := classify(ctx, err, output)
	if msg := strings.TrimSpace(string(output)); msg != "" {
		err = fmt.Errorf("%w: %s", err, msg)
	}
	return &Error{Sink: s.name, Kind: kind, Percent: percent, Err: err}
}

// classify maps a command failure onto a Kind.
func classify(ctx context.Context, err error, output []byte) Kind {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return KindBusy
	}
	if errors.Is(err, exec.ErrNotFound) {
		return KindUnsupported
	}
	return classifyMessage(string(output) + " " + err.Error())
}

// classifyMessage looks for well known failure phrases in mixer output.
func classifyMessage(msg string) Kind {
	msg = strings.ToLower(msg)
	switch {
	case strings.Contains(msg, "busy"), strings.Contains(msg, "resource temporarily unavailable"):
		return KindBusy
	case strings.Contains(msg, "permission denied"), strings.Contains(msg, "not authorized"),
		strings.Contains(msg, "not allowed"), strings.Contains(msg, "access is denied"):
		return KindPermission
	case strings.Contains(msg, "not found"), strings.Contains(msg, "unable to find simple control"),
		strings.Contains(msg, "no such file"), strings.Contains(msg, "not recognized"):
		return KindUnsupported
	default:
		return KindFailed
	}
}
