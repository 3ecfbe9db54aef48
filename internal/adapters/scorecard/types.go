package scorecard

import "encoding/json"

// Page is the list envelope most endpoints return.
type Page struct {
	Total   int              `json:"total"`
	Entries []map[string]any `json:"entries"`
}

// CompanyFilter narrows the companies of a portfolio. Zero values are not sent.
type CompanyFilter struct {
	Grade                   string
	Industry                string
	Vulnerability           string
	IssueType               string
	HadBreachWithinLastDays int
}

// HistoryQuery bounds a history request. Dates are YYYY-MM-DD.
type HistoryQuery struct {
	From   string
	To     string
	Timing string
}

// GradeAlert subscribes to grade changes.
type GradeAlert struct {
	ChangeDirection string   `json:"change_direction,omitempty"`
	ScoreTypes      []string `json:"score_types,omitempty"`
	Target          []string `json:"target,omitempty"`
}

// ThresholdAlert subscribes to a score crossing a threshold.
type ThresholdAlert struct {
	ChangeDirection string   `json:"change_direction,omitempty"`
	Threshold       int      `json:"threshold"`
	ScoreTypes      []string `json:"score_types,omitempty"`
	Target          []string `json:"target,omitempty"`
}

// Change is one entry of an alert's change_data.
type Change struct {
	Direction   string  `json:"direction"`
	Score       float64 `json:"score"`
	Factor      string  `json:"factor"`
	GradeLetter string  `json:"grade_letter"`
	ScoreImpact float64 `json:"score_impact"`
}

// Alert is a triggered notification. Raw keeps the entry exactly as sent.
type Alert struct {
	ID          string   `json:"id"`
	ChangeType  string   `json:"change_type"`
	Domain      string   `json:"domain"`
	CompanyName string   `json:"company_name"`
	CreatedAt   string   `json:"created_at"`
	ChangeData  []Change `json:"change_data"`

	Raw json.RawMessage `json:"-"`
}
