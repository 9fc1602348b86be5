// Command nmap-parse prints the open ports found in nmap scan output.
package main

import "github.com/anstrom/nmap-parse/cmd/cli"

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

func main() {
	cli.SetVersion(version, commit, buildTime)
	cli.Execute()
}
