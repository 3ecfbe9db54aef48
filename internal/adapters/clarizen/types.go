package clarizen

import "strings"

// UserFields are the user attributes requested on every fetch.
const UserFields = "Name,Email,Region,Location,JobTitle,DirectManager,MobilePhone,TimeZone,username,profile,firstname,lastname,state"

const (
	userPrefix  = "/User/"
	statePrefix = "/State/"
)

// Lifecycle operations.
const (
	OpEnable  = "Enable"
	OpDisable = "Disable"
)

// User is the subset of a Clarizen user record the IAM commands read.
type User struct {
	ID       string `json:"id"`
	Email    string `json:"Email"`
	Username string `json:"username"`
	State    *struct {
		ID string `json:"id"`
	} `json:"state"`
}

// Active maps the user state to an activity flag; unknown states are nil.
func (u User) Active() *bool {
	if u.State == nil {
		return nil
	}
	var active bool
	switch strings.TrimPrefix(u.State.ID, statePrefix) {
	case "Active":
		active = true
	case "Disabled":
		active = false
	default:
		return nil
	}
	return &active
}

// QueryResult is returned by the user lookup queries.
type QueryResult struct {
	Entities []struct {
		ID string `json:"id"`
	} `json:"entities"`
}

// FirstID returns the entity path of the first match, or "".
func (q QueryResult) FirstID() string {
	if len(q.Entities) == 0 {
		return ""
	}
	return q.Entities[0].ID
}

// EntityPath turns a bare user id into "/User/<id>"; paths pass through.
func EntityPath(id string) string {
	if strings.HasPrefix(id, userPrefix) {
		return id
	}
	return userPrefix + id
}

// BareID strips the "/User/" prefix.
func BareID(entity string) string {
	return strings.TrimPrefix(entity, userPrefix)
}
