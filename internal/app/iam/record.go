package iam

import (
	"strings"

	"github.com/okian/soarbridge/internal/domain/model"
	"github.com/okian/soarbridge/pkg/markdown"
)

var recordHeaders = []string{
	"brand", "instanceName", "success", "active", "id", "username",
	"email", "errorCode", "errorMessage", "details",
}

// Record is the generic IAM outcome returned by every user command.
type Record struct {
	Brand        string `json:"brand"`
	InstanceName string `json:"instanceName"`
	Success      bool   `json:"success"`
	Active       *bool  `json:"active,omitempty"`
	ID           string `json:"id,omitempty"`
	Username     string `json:"username,omitempty"`
	Email        string `json:"email,omitempty"`
	ErrorCode    int    `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	Details      any    `json:"details,omitempty"`
}

func (c *Commands) record() Record {
	return Record{Brand: Brand, InstanceName: c.instance}
}

// contextKey builds the host context path for a command, e.g.
// "GetUser(val.id == obj.id && val.instanceName == obj.instanceName)".
func contextKey(command string) string {
	parts := strings.Split(command, "-")
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
		}
	}
	return strings.Join(parts, "") + "(val.id == obj.id && val.instanceName == obj.instanceName)"
}

// result renders records under the command's context key. title is the
// verb, e.g. "Get".
func result(command, title string, records ...Record) *model.Result {
	var outputs any = records
	if len(records) == 1 {
		outputs = records[0]
	}
	return &model.Result{
		ReadableOutput: markdown.Table(title+" Clarizen User:", records,
			markdown.WithHeaders(recordHeaders...), markdown.RemoveNull()),
		Outputs:     map[string]any{contextKey(command): outputs},
		RawResponse: outputs,
	}
}

func boolRef(b bool) *bool { return &b }
