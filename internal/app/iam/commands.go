package iam

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/soarbridge/internal/adapters/clarizen"
	"github.com/okian/soarbridge/internal/adapters/http/rest"
	"github.com/okian/soarbridge/internal/domain/model"
	"github.com/okian/soarbridge/internal/domain/scim"
	"github.com/okian/soarbridge/internal/domain/types"
	"github.com/okian/soarbridge/pkg/logger"
)

// TestModule checks that the configured credentials can open a session.
func (c *Commands) TestModule(ctx context.Context, _ types.Args) (*model.Result, error) {
	resp, err := c.client.Login(ctx)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: error testing [%d] - %s", rest.ErrBadStatus, resp.StatusCode, resp.Text())
	}
	return model.Text("ok"), nil
}

// GetUser fetches a user by SCIM id, or looks it up by userName or email
// among active and then disabled users.
func (c *Commands) GetUser(ctx context.Context, args types.Args) (*model.Result, error) {
	const command, title = "get-user", "Get"

	record, err := loadSCIM(args, "scim")
	if err != nil {
		return nil, err
	}
	u := scim.Parse(record)
	if u.ID == "" && u.UserName == "" && u.Email == "" {
		return nil, fmt.Errorf("%w: you must provide either the id, username or email of the user", types.ErrInvalidArgument)
	}

	entity := u.ID
	if entity == "" {
		key := u.UserName
		if key == "" {
			key = u.Email
		}
		entity, err = c.findUserID(ctx, key, true)
		if vendorFailure(err) {
			rec := c.record()
			rec.Username, rec.Email = u.UserName, u.Email
			lookupFailed(&rec, err)
			return result(command, title, rec), nil
		}
		if err != nil {
			return nil, err
		}
		if entity == "" {
			c.log.Info(ctx, "user not found", logger.String("lookup", key))
			rec := c.record()
			rec.ErrorCode = http.StatusNotFound
			rec.ErrorMessage = UserNotFound
			return result(command, title, rec), nil
		}
	}

	resp, err := c.client.GetUser(ctx, entity)
	if err != nil {
		return nil, err
	}
	body := resp.Map()

	rec := c.record()
	switch {
	case resp.OK() && len(body) > 0:
		user := c.decodeUser(resp)
		rec.Success = true
		rec.ID = clarizen.BareID(user.ID)
		rec.Email = user.Email
		rec.Username = user.Username
		rec.Active = user.Active()
		rec.Details = body
	case resp.OK():
		rec.ID, rec.Username, rec.Email = u.ID, u.UserName, u.Email
		rec.ErrorCode = http.StatusNotFound
		rec.ErrorMessage = UserNotFound
	default:
		rec.ID, rec.Username, rec.Email = u.ID, u.UserName, u.Email
		rec.ErrorCode = resp.StatusCode
		rec.ErrorMessage = resp.Message()
		rec.Details = body
	}
	return result(command, title, rec), nil
}

// CreateUser creates a user whose Username is its email, then re-reads it.
func (c *Commands) CreateUser(ctx context.Context, args types.Args) (*model.Result, error) {
	const command, title = "create-user", "Create"

	record, err := loadSCIM(args, "scim")
	if err != nil {
		return nil, err
	}
	profile, err := c.buildProfile(ctx, record, args, c.createMapping)
	if err != nil {
		return nil, err
	}
	delete(profile, "Username")
	if email, ok := profile["Email"]; ok {
		profile["Username"] = email
	}

	resp, err := c.client.CreateUser(ctx, profile)
	if err != nil {
		return nil, err
	}

	rec := c.record()
	if resp.StatusCode != http.StatusOK {
		rec.ErrorCode = resp.StatusCode
		rec.ErrorMessage = resp.Message()
		rec.Details = resp.Map()
		return result(command, title, rec), nil
	}

	var created struct {
		ID string `json:"id"`
	}
	if err := resp.JSON(&created); err != nil || created.ID == "" {
		c.log.Warn(ctx, "create response carried no user id", logger.Error(err))
		rec.ErrorCode = http.StatusBadGateway
		rec.ErrorMessage = "user creation response did not include the new user id"
		rec.Details = resp.Map()
		return result(command, title, rec), nil
	}
	user, err := c.fetchUser(ctx, created.ID)
	if err != nil {
		return nil, err
	}
	rec.Success = true
	rec.Active = boolRef(true)
	rec.ID = clarizen.BareID(created.ID)
	rec.Email = user.Email
	rec.Username = user.Username
	rec.Details = record
	c.log.Info(ctx, "user created", logger.String("id", rec.ID))
	return result(command, title, rec), nil
}

// UpdateUser applies newScim to the user identified by oldScim's id.
func (c *Commands) UpdateUser(ctx context.Context, args types.Args) (*model.Result, error) {
	const command, title = "update-user", "Update"

	oldRecord, err := loadSCIM(args, "oldScim")
	if err != nil {
		return nil, err
	}
	newRecord, err := loadSCIM(args, "newScim")
	if err != nil {
		return nil, err
	}
	id := scim.Parse(oldRecord).ID
	if id == "" {
		return nil, fmt.Errorf("%w: you must provide id of the user", types.ErrInvalidArgument)
	}
	profile, err := c.buildProfile(ctx, newRecord, args, c.updateMapping)
	if err != nil {
		return nil, err
	}

	current, err := c.fetchUser(ctx, id)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.UpdateUser(ctx, id, profile)
	if err != nil {
		return nil, err
	}
	updated := c.decodeUser(resp)
	body := resp.Map()

	rec := c.record()
	rec.ID = id
	if resp.StatusCode != http.StatusOK {
		rec.Email = current.Email
		rec.Username = current.Username
		rec.ErrorCode = resp.StatusCode
		rec.ErrorMessage = resp.Message()
		rec.Details = body
		return result(command, title, rec), nil
	}

	rec.Success = true
	rec.Active = boolRef(true)
	rec.Email = firstNonEmpty(updated.Email, current.Email)
	rec.Username = firstNonEmpty(updated.Username, current.Username)
	rec.Details = body
	return result(command, title, rec), nil
}

// DisableUser disables the user with the SCIM id and re-reads it.
func (c *Commands) DisableUser(ctx context.Context, args types.Args) (*model.Result, error) {
	const command, title = "disable-user", "Disable"

	record, err := loadSCIM(args, "scim")
	if err != nil {
		return nil, err
	}
	id := scim.Parse(record).ID
	if id == "" {
		return nil, fmt.Errorf("%w: you must provide sys id of the user", types.ErrInvalidArgument)
	}

	resp, err := c.client.Lifecycle(ctx, clarizen.OpDisable, id)
	if err != nil {
		return nil, err
	}
	rec := c.record()
	rec.ID = id
	rec.Details = resp.Map()
	if resp.StatusCode != http.StatusOK {
		rec.ErrorCode = resp.StatusCode
		rec.ErrorMessage = resp.Message()
		return result(command, title, rec), nil
	}

	user, err := c.fetchUser(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Success = true
	rec.Active = boolRef(false)
	rec.Email = user.Email
	rec.Username = user.Username
	c.log.Info(ctx, "user disabled", logger.String("id", id))
	return result(command, title, rec), nil
}

// EnableUser enables the user with the SCIM id, then applies the rest of
// the SCIM record as an update.
func (c *Commands) EnableUser(ctx context.Context, args types.Args) (*model.Result, error) {
	const command, title = "enable-user", "Enable"

	record, err := loadSCIM(args, "scim")
	if err != nil {
		return nil, err
	}
	id := scim.Parse(record).ID
	if id == "" {
		return nil, fmt.Errorf("%w: you must provide id of the user", types.ErrInvalidArgument)
	}

	resp, err := c.client.Lifecycle(ctx, clarizen.OpEnable, id)
	if err != nil {
		return nil, err
	}
	rec := c.record()
	rec.ID = id
	if resp.StatusCode != http.StatusOK {
		rec.ErrorCode = resp.StatusCode
		rec.ErrorMessage = resp.Message()
		rec.Details = resp.Map()
		return result(command, title, rec), nil
	}

	profile, err := c.buildProfile(ctx, record, args, c.updateMapping)
	if err != nil {
		return nil, err
	}
	resp, err = c.client.UpdateUser(ctx, id, profile)
	if err != nil {
		return nil, err
	}
	rec.Details = resp.Map()
	if resp.StatusCode != http.StatusOK {
		rec.ErrorCode = resp.StatusCode
		rec.ErrorMessage = resp.Message()
		return result(command, title, rec), nil
	}

	user, err := c.fetchUser(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Success = true
	rec.Active = boolRef(true)
	rec.Email = user.Email
	rec.Username = user.Username
	c.log.Info(ctx, "user enabled", logger.String("id", id))
	return result(command, title, rec), nil
}

// fetchUser re-reads a user for confirmation. A failed read yields an
// empty user, not an error; only transport failures are returned.
func (c *Commands) fetchUser(ctx context.Context, id string) (clarizen.User, error) {
	resp, err := c.client.GetUser(ctx, id)
	if err != nil {
		return clarizen.User{}, err
	}
	if !resp.OK() {
		c.log.Warn(ctx, "confirmation read failed",
			logger.String("id", clarizen.BareID(id)),
			logger.Int("status", resp.StatusCode))
		return clarizen.User{}, nil
	}
	return c.decodeUser(resp), nil
}

func (c *Commands) decodeUser(resp *rest.Response) clarizen.User {
	var u clarizen.User
	if err := resp.JSON(&u); err != nil {
		return clarizen.User{}
	}
	return u
}

// lookupFailed fills rec from a rejected or unreadable lookup answer.
func lookupFailed(rec *Record, err error) {
	var se *rest.StatusError
	if errors.As(err, &se) {
		rec.ErrorCode = se.StatusCode
		rec.ErrorMessage = firstNonEmpty(se.Message, http.StatusText(se.StatusCode))
		return
	}
	rec.ErrorCode = http.StatusBadGateway
	rec.ErrorMessage = err.Error()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
