package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

const (
	ProjectName    = "Regime Backtester"
	ProjectVersion = "1.0.0"
	ProjectRepo    = "github.com/ducminhle1904/regime-backtester"
)

// Build information, overridden with -ldflags "-X main.BuildCommit=..."
var (
	BuildDate   = "unknown"
	BuildCommit = "dev"
)

// VersionInfo contains version and build information
type VersionInfo struct {
	ProjectName  string `json:"project_name"`
	Version      string `json:"version"`
	BuildDate    string `json:"build_date"`
	BuildCommit  string `json:"build_commit"`
	GoVersion    string `json:"go_version"`
	Architecture string `json:"architecture"`
	Repository   string `json:"repository"`
}

// GetVersionInfo returns complete version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		ProjectName:  ProjectName,
		Version:      ProjectVersion,
		BuildDate:    BuildDate,
		BuildCommit:  BuildCommit,
		GoVersion:    runtime.Version(),
		Architecture: runtime.GOOS + "/" + runtime.GOARCH,
		Repository:   ProjectRepo,
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := GetVersionInfo()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s v%s\n", info.ProjectName, info.Version)
		fmt.Fprintf(out, "Build: %s (%s)\n", info.BuildCommit, info.BuildDate)
		fmt.Fprintf(out, "Go: %s (%s)\n", info.GoVersion, info.Architecture)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
