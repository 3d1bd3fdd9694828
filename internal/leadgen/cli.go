package leadgen

import "os"

// ShowHelp prints usage information for the lead generator tool.
func ShowHelp() {
	os.Stdout.WriteString(`UnflakeOps Lead Generator
=========================

A concurrent tool for load and smoke testing the lead relay service.

Usage:
  go run cmd/leadgen/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8080")
  -leads int
        Number of leads to generate and submit (default 100)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Smoke test with default settings
  go run cmd/leadgen/main.go

  # Heavier run against a staging host
  go run cmd/leadgen/main.go -leads 5000 -workers 16 -url https://staging.unflakeops.com
`)
}
