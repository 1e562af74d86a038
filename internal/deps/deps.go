package deps

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const versionProbeTimeout = 2 * time.Second

// Requirement describes one external binary sublift shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	// VersionArgs, when set, is passed to the resolved binary to capture a
	// version banner for status output.
	VersionArgs []string
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Version     string
	Detail      string
}

// CheckBinaries resolves every requirement and reports the outcomes in
// input order. Binaries that advertise VersionArgs also get their version
// banner captured.
func CheckBinaries(ctx context.Context, requirements []Requirement) []Status {
	statuses := make([]Status, len(requirements))
	for i, req := range requirements {
		statuses[i] = check(ctx, req)
	}
	return statuses
}

func check(ctx context.Context, req Requirement) Status {
	status := Status{
		Name:        req.Name,
		Command:     strings.TrimSpace(req.Command),
		Description: strings.TrimSpace(req.Description),
		Optional:    req.Optional,
	}
	if status.Command == "" {
		status.Detail = "no command configured"
		return status
	}
	resolved, err := exec.LookPath(status.Command)
	if err != nil {
		status.Detail = fmt.Sprintf("could not locate %q", status.Command)
		return status
	}
	status.Available = true
	status.Version = probeVersion(ctx, resolved, req.VersionArgs)
	return status
}

// probeVersion runs the binary with the given arguments and returns the
// first line of its output. Tools that refuse the probe yield an empty
// string rather than an error; availability was already established.
func probeVersion(ctx context.Context, command string, args []string) string {
	if len(args) == 0 {
		return ""
	}
	probeCtx, cancel := context.WithTimeout(ctx, versionProbeTimeout)
	defer cancel()

	output, err := exec.CommandContext(probeCtx, command, args...).Output()
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(output)), "\n")
	return strings.TrimSpace(line)
}
