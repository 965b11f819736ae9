package utils

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	klog "k8s.io/klog/v2"
)

// Runner executes external commands with a per-call deadline.
type Runner time.Duration

func NewRunner(du time.Duration) Runner {
	return Runner(du)
}

// Run executes the command and returns its stdout. Stderr is folded into
// the returned error so callers can surface the failure cause.
func (r Runner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if r > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(r))
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	klog.V(4).Infof("Executing command: %v %v", name, args)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()

	if ctx.Err() == context.DeadlineExceeded {
		return nil, fmt.Errorf("command %s timed out", name)
	}
	if err != nil {
		return nil, fmt.Errorf("command %s exited with non-zero code: %v, stderr: %s", name, err, stderr.String())
	}
	return out, nil
}
