package utils

import (
	"runtime"
	"sync"
)

// Version describes the running build. Fields are stamped with -ldflags.
type Version struct {
	Version   string `json:"version"`
	Branch    string `json:"branch"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
	Arch      string `json:"arch"`
}

var (
	versionMu sync.RWMutex
	current   = Version{Version: "dev", Arch: runtime.GOOS + "/" + runtime.GOARCH}
)

// SetVersion populates the package-level version.
func SetVersion(version, branch, commit, buildDate, arch string) {
	versionMu.Lock()
	defer versionMu.Unlock()
	if version != "" {
		current.Version = version
	}
	current.Branch = branch
	current.Commit = commit
	current.BuildDate = buildDate
	if arch != "" {
		current.Arch = arch
	}
}

// GetVersion returns the version information for the service.
func GetVersion() Version {
	versionMu.RLock()
	defer versionMu.RUnlock()
	return current
}

// String renders "version (commit)" or just the version when no commit is stamped.
func (v Version) String() string {
	if v.Commit == "" {
		return v.Version
	}
	commit := v.Commit
	if len(commit) > 7 {
		commit = commit[:7]
	}
	return v.Version + " (" + commit + ")"
}
