// Package leadgen is a load and smoke testing tool that floods a running
// lead relay with synthetic calculator submissions.
package leadgen

import "time"

// Config holds configuration for a generator run.
type Config struct {
	BaseURL  string        // Base URL of the service
	NumLeads int           // Number of leads to generate
	Workers  int           // Number of concurrent workers
	Timeout  time.Duration // HTTP request timeout
	Verbose  bool          // Enable verbose logging
}

// Stats holds run statistics.
type Stats struct {
	LeadsGenerated    int
	LeadsSubmitted    int
	LeadsAccepted     int
	LeadsSkippedEmail int
	LeadsFailed       int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}

// apiResponse mirrors the wire shape of POST /api/lead.
type apiResponse struct {
	OK           bool   `json:"ok"`
	SkippedEmail bool   `json:"skippedEmail"`
	Message      string `json:"message"`
	Error        string `json:"error"`
}
