package rollback

import (
	"context"
	"os/exec"
	"strings"
)

// ExecProvisioner shells out to the provisioning CLI in the deployment's
// working directory.
type ExecProvisioner struct {
	// Command is the apply invocation, e.g. "terraform apply -auto-approve".
	Command string
}

// NewExecProvisioner creates a provisioner running the given command line.
func NewExecProvisioner(command string) *ExecProvisioner {
	if command == "" {
		command = "terraform apply -auto-approve"
	}
	return &ExecProvisioner{Command: command}
}

// Apply runs the configured command in workingDir, honoring ctx
// cancellation.
func (p *ExecProvisioner) Apply(ctx context.Context, workingDir string) error {
	parts := strings.Fields(p.Command)
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)
	cmd.Dir = workingDir
	return cmd.Run()
}
