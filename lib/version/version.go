// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports the build version of the whitelist binaries.
//
// Release builds inject the values with -ldflags:
//
//	go build -ldflags "-X github.com/bureau-foundation/mcwhitelist/lib/version.Version=1.2.0"
//
// Development builds fall back to the VCS stamp the Go toolchain
// records in the binary.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set via -ldflags at build time.
var (
	Version   = "0.1.0-dev"
	GitCommit = ""
	BuildTime = ""
)

// Info returns the string printed by --version, e.g.
// "0.1.0-dev (abc1234-dirty, 2026-10-01T12:00:00Z)".
func Info() string {
	commit, built, dirty := GitCommit, BuildTime, false
	if commit == "" {
		commit, built, dirty = vcsStamp(debug.ReadBuildInfo())
	}
	if commit == "" {
		commit = "unknown"
	}
	if dirty {
		commit += "-dirty"
	}
	if built == "" {
		return fmt.Sprintf("%s (%s)", Version, commit)
	}
	return fmt.Sprintf("%s (%s, %s)", Version, commit, built)
}

// vcsStamp extracts the short revision, commit time and modified flag
// from build info.
func vcsStamp(info *debug.BuildInfo, ok bool) (commit, built string, dirty bool) {
	if !ok || info == nil {
		return "", "", false
	}
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			commit = setting.Value
			if len(commit) > 7 {
				commit = commit[:7]
			}
		case "vcs.time":
			built = setting.Value
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}
	return commit, built, dirty
}
