package common

import (
	"fmt"
	"runtime/debug"
)

// Version and GitCommit are set via ldflags for release builds.
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// GetModuleBuildInfo prefers ldflags values and falls back to the module
// build info embedded by go install.
func GetModuleBuildInfo() (string, string, bool) {
	if Version != "dev" {
		return Version, GitCommit, true
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "", "", false
	}

	gitCommit := GitCommit
	for _, setting := range info.Settings {
		if setting.Key == "vcs.revision" {
			gitCommit = setting.Value
			break
		}
	}

	version := info.Main.Version
	if len(version) == 0 || version == "(devel)" {
		version = Version
	}
	return version, gitCommit, true
}

func GetVersion() string {
	version, gitCommit, ok := GetModuleBuildInfo()
	if !ok {
		return Version
	}
	return fmt.Sprintf("%s (git: %s)", version, gitCommit)
}

// UserAgent identifies the tool to the Jamf Pro server.
func UserAgent() string {
	version, _, ok := GetModuleBuildInfo()
	if !ok {
		version = Version
	}
	return "sgscan/" + version
}
