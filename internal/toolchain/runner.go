package toolchain

import (
	"bytes"
	"fmt"
	"os/exec"
)

// CommandRunner runs a compiler for introspection and returns its
// standard output.
type CommandRunner interface {
	Run(program string, args []string, stdin []byte) ([]byte, error)
}

// ExecRunner runs programs with os/exec.
type ExecRunner struct{}

// Run executes program synchronously.
func (ExecRunner) Run(program string, args []string, stdin []byte) ([]byte, error) {
	cmd := exec.Command(program, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", program, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return out, nil
}

// RunnerFunc adapts a function to CommandRunner.
type RunnerFunc func(program string, args []string, stdin []byte) ([]byte, error)

// Run calls f.
func (f RunnerFunc) Run(program string, args []string, stdin []byte) ([]byte, error) {
	return f(program, args, stdin)
}
