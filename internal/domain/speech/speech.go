// Package speech holds the domain model shared by the generator, the
// playback controller and the session.
package speech

import "strings"

// OfflineKey stands in for the credential when the engine needs none.
const OfflineKey = "offline"

// Request is the parameter set of one user-initiated generation.
// It is built once and never mutated.
type Request struct {
	APIKey string
	Text   string
	Voice  string
	Rate   float64
	Pitch  float64
	Tone   string
}

// Validate checks the fields that must be present before any remote call.
func (r Request) Validate() error {
	if strings.TrimSpace(r.APIKey) == "" {
		return &ValidationError{Field: "api key", Message: "Please enter and save your API key to continue."}
	}
	if strings.TrimSpace(r.Text) == "" {
		return &ValidationError{Field: "text", Message: "Please enter some text to generate speech."}
	}
	return nil
}

// Result holds one base64 PCM fragment per chunk, in chunk order.
type Result struct {
	Fragments []string `json:"fragments"`
}

// Progress is a (completed, total) pair reported while chunks finish.
type Progress struct {
	Current int
	Total   int
}

// ProgressFunc receives monotonically non-decreasing progress reports.
type ProgressFunc func(current, total int)
