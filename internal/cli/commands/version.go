package commands

import (
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/liveinspect/internal/cli/config"
	"github.com/leapstack-labs/liveinspect/internal/cli/output"
)

// VersionInfo describes the running binary.
type VersionInfo struct {
	Version  string   `json:"version"`
	Go       string   `json:"go"`
	Hosts    []string `json:"hosts"`
	Starlark string   `json:"starlark,omitempty"`
}

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display the liveinspect version, the Go toolchain and the supported hosts.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := getConfig()
			r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
			info := versionInfo(version)
			if r.IsStructured() {
				return r.Data(info)
			}
			r.Println("liveinspect v" + info.Version)
			r.Println("go:    " + info.Go)
			r.Println("hosts: " + strings.Join(info.Hosts, ", "))
			if info.Starlark != "" {
				r.Println("starlark: " + info.Starlark)
			}
			return nil
		},
	}
}

func versionInfo(version string) VersionInfo {
	info := VersionInfo{Version: version, Go: runtime.Version(), Hosts: config.Hosts}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, dep := range bi.Deps {
			if dep.Path == "go.starlark.net" {
				info.Starlark = dep.Version
			}
		}
	}
	return info
}
