// ============================================================================
// Vorleser - Text-to-Speech Client
// ============================================================================
//
// Package:     version
// Description: Build version information
// Author:      Mike Stoffels
// Created:     2026-09-21
// License:     MIT
// ============================================================================

package version

import (
	"fmt"
	"runtime"
)

// Set via -ldflags "-X github.com/msto63/vorleser/pkg/core/version.Version=..."
var (
	Version   = "0.3.0"
	GitCommit = "development"
	BuildDate = "unknown"
)

// Name is the product name shown in the UI and CLI
const Name = "Vorleser"

// Short returns "Vorleser v<version>"
func Short() string {
	return fmt.Sprintf("%s v%s", Name, Version)
}

// UserAgent returns the HTTP user agent used by remote engines
func UserAgent() string {
	return fmt.Sprintf("vorleser/%s (%s; %s)", Version, runtime.GOOS, runtime.GOARCH)
}

// Lines returns the multi-line version report
func Lines() []string {
	return []string{
		Short(),
		fmt.Sprintf("  Git Commit: %s", GitCommit),
		fmt.Sprintf("  Build Date: %s", BuildDate),
		fmt.Sprintf("  Go Version: %s", runtime.Version()),
		fmt.Sprintf("  OS/Arch:    %s/%s", runtime.GOOS, runtime.GOARCH),
	}
}
