// Package scim parses SCIM user records into the flat attribute set the IAM
// adapters map onto vendor profiles.
package scim

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ExtensionSchema is the custom extension carrying vendor specific attributes.
const ExtensionSchema = "urn:scim:schemas:extension:custom:1.0:user"

// User is the flattened view of a SCIM record. Attributes read through a
// filter keep every match; callers usually want the first.
type User struct {
	ID          string
	UserName    string
	Email       string
	DisplayName string
	FirstName   string
	LastName    string
	Title       string
	Active      *bool

	AddressOne []string // primary streetAddress
	AddressTwo []string // non-primary formatted
	City       []string // primary locality
	State      []string // primary region
	Country    []string // primary country
	Zip        []string // primary postalCode

	PhoneHome   []string
	PhoneMobile []string
	PhoneWork   []string
}

// Load accepts a SCIM record as a JSON string, raw bytes, or an already
// decoded object.
func Load(raw any) (map[string]any, error) {
	var data []byte
	switch t := raw.(type) {
	case map[string]any:
		if t == nil {
			return nil, ErrInvalidSCIM
		}
		return t, nil
	case string:
		data = []byte(t)
	case []byte:
		data = t
	case json.RawMessage:
		data = t
	default:
		return nil, ErrInvalidSCIM
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		return nil, ErrInvalidSCIM
	}
	return m, nil
}

// Parse flattens a SCIM record.
func Parse(record map[string]any) User {
	name, _ := record["name"].(map[string]any)

	primaryAddr := Select(record, "addresses", Primary)
	u := User{
		ID:          str(record["id"]),
		UserName:    str(record["userName"]),
		DisplayName: str(record["displayName"]),
		FirstName:   str(name["givenName"]),
		LastName:    str(name["familyName"]),
		Title:       str(record["title"]),
		Active:      boolPtr(record["active"]),

		AddressOne: Pluck(primaryAddr, "streetAddress"),
		AddressTwo: Pluck(Select(record, "addresses", NotPrimary), "formatted"),
		City:       Pluck(primaryAddr, "locality"),
		State:      Pluck(primaryAddr, "region"),
		Country:    Pluck(primaryAddr, "country"),
		Zip:        Pluck(primaryAddr, "postalCode"),

		PhoneHome:   Pluck(Select(record, "phoneNumbers", HomePhone), "value"),
		PhoneMobile: Pluck(Select(record, "phoneNumbers", MobilePhone), "value"),
		PhoneWork:   Pluck(Select(record, "phoneNumbers", WorkPhone), "value"),
	}
	if emails := Pluck(Select(record, "emails", Primary), "value"); len(emails) > 0 {
		u.Email = emails[0]
	}
	return u
}

// Extension returns a copy of the custom extension object, or nil.
func Extension(record map[string]any) map[string]any {
	ext, ok := record[ExtensionSchema].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]any, len(ext))
	for k, v := range ext {
		out[k] = v
	}
	return out
}

// First returns the first element of values, or "".
func First(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func str(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func boolPtr(v any) *bool {
	switch t := v.(type) {
	case bool:
		return &t
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return nil
		}
		return &b
	default:
		return nil
	}
}
