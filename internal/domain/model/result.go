// Package model contains the records exchanged with the automation host.
package model

// Result is the output of one command: a human readable rendition plus
// machine outputs stored by the host under OutputsPrefix.
type Result struct {
	ReadableOutput  string     `json:"readable_output,omitempty"`
	OutputsPrefix   string     `json:"outputs_prefix,omitempty"`
	OutputsKeyField string     `json:"outputs_key_field,omitempty"`
	Outputs         any        `json:"outputs,omitempty"`
	RawResponse     any        `json:"raw_response,omitempty"`
	Warnings        []string   `json:"warnings,omitempty"`
	Incidents       []Incident `json:"incidents,omitempty"`
}

// Text returns a Result that only carries readable output.
func Text(msg string) *Result {
	return &Result{ReadableOutput: msg}
}

// Warn appends a host warning.
func (r *Result) Warn(msg string) *Result {
	r.Warnings = append(r.Warnings, msg)
	return r
}
