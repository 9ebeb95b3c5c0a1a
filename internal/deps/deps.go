// Package deps verifies the external tools and resources a render needs
// before any work starts.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"slidecast/internal/services"
)

// Requirement defines an external binary slidecast shells out to.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Required returns the transcoder binaries a render needs.
func Required(ffmpegBinary, ffprobeBinary string) []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: ffmpegBinary, Description: "Extracts frames and assembles the slideshow"},
		{Name: "FFprobe", Command: ffprobeBinary, Description: "Inspects container streams and duration"},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Verify checks the required binaries and reports every missing one in a
// single error.
func Verify(requirements []Requirement) error {
	var missing []string
	for _, status := range CheckBinaries(requirements) {
		if status.Optional || status.Available {
			continue
		}
		missing = append(missing, fmt.Sprintf("%s: %s", status.Name, status.Detail))
	}
	if len(missing) == 0 {
		return nil
	}
	return services.Wrap(services.ErrConfiguration, "deps", "verify", strings.Join(missing, "; "), nil)
}
