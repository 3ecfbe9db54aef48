package iam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/okian/soarbridge/internal/adapters/clarizen"
	"github.com/okian/soarbridge/internal/adapters/http/rest"
	"github.com/okian/soarbridge/internal/domain/scim"
	"github.com/okian/soarbridge/internal/domain/types"
	"github.com/okian/soarbridge/pkg/logger"
)

const managerEmailAttr = "manageremail"

// buildProfile maps a SCIM record onto Clarizen user fields. Empty values
// are left out so updates never blank a field. The manager is resolved by
// email; an unknown manager clears DirectManager, a failed lookup leaves
// it out.
func (c *Commands) buildProfile(ctx context.Context, record map[string]any, args types.Args, mapping string) (map[string]any, error) {
	u := scim.Parse(record)
	ext := scim.Extension(record)

	profile := map[string]any{}
	set := func(field, value string) {
		if value != "" {
			profile[field] = value
		}
	}
	set("Username", u.UserName)
	set("firstname", u.FirstName)
	set("lastname", u.LastName)
	set("Name", u.DisplayName)
	set("Email", u.Email)
	set("JobTitle", u.Title)
	set("Location", scim.First(u.City))
	set("Region", scim.First(u.State))
	set("MobilePhone", scim.First(u.PhoneWork))

	if manager, ok := ext[managerEmailAttr]; ok && manager != nil {
		id, err := c.findUserID(ctx, fmt.Sprint(manager), false)
		switch {
		case vendorFailure(err):
			c.log.Warn(ctx, "manager lookup failed; DirectManager left unchanged",
				logger.String("manager", fmt.Sprint(manager)), logger.Error(err))
		case err != nil:
			return nil, err
		default:
			profile["DirectManager"] = id
		}
		delete(ext, managerEmailAttr)
	}

	if custom := args.String("customMapping"); custom != "" {
		mapping = custom
	}
	if mapping == "" || len(ext) == 0 {
		return profile, nil
	}
	fields := map[string]string{}
	if err := json.Unmarshal([]byte(mapping), &fields); err != nil {
		return nil, fmt.Errorf("%w: custom mapping is not a JSON object of strings: %w", types.ErrInvalidArgument, err)
	}
	for attr, field := range fields {
		if v := ext[attr]; truthy(v) {
			profile[field] = v
		}
	}
	return profile, nil
}

// findUserID resolves an email to a user entity path. With disabled set, a
// miss on active users is retried against all users. "" means not found; a
// rejected or unreadable answer is an error, never a miss.
func (c *Commands) findUserID(ctx context.Context, email string, disabled bool) (string, error) {
	id, err := queryUserID(ctx, c.client.FindUser, email)
	if err != nil || id != "" || !disabled {
		return id, err
	}
	return queryUserID(ctx, c.client.FindDisabledUser, email)
}

func queryUserID(ctx context.Context, find func(context.Context, string) (*rest.Response, error), email string) (string, error) {
	resp, err := find(ctx, email)
	if err != nil {
		return "", err
	}
	if err := resp.Err(); err != nil {
		return "", err
	}
	var q clarizen.QueryResult
	if err := resp.JSON(&q); err != nil {
		return "", err
	}
	return q.FirstID(), nil
}

// vendorFailure reports an answer Clarizen gave but that cannot be used.
func vendorFailure(err error) bool {
	return errors.Is(err, rest.ErrBadStatus) || errors.Is(err, rest.ErrDecode)
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case bool:
		return t
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	default:
		return true
	}
}

func loadSCIM(args types.Args, key string) (map[string]any, error) {
	record, err := scim.Load(args[key])
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", types.ErrInvalidArgument, key, err)
	}
	return record, nil
}
