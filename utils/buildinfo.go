package utils

import "fmt"

// Set via -ldflags at build time.
var BuildVersion string
var BuildRelease string

// GetBuildVersion returns a printable version of the running binary.
func GetBuildVersion() string {
	if BuildVersion == "" {
		return "dev"
	}
	if BuildRelease == "" {
		return fmt.Sprintf("git-%v", BuildVersion)
	}
	return fmt.Sprintf("%v (git-%v)", BuildRelease, BuildVersion)
}
