package api

import (
	"context"
	"net/http"

	"github.com/buildmart/storefront-client/pkg/errors"
)

// Profile fetches the authenticated user's profile.
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	var out struct {
		Profile Profile `json:"profile"`
	}
	if err := c.call(ctx, http.MethodGet, "/profile", nil, &out, 0); err != nil {
		return nil, err
	}
	if out.Profile.ID == "" {
		return nil, errors.New(errors.CodeDependency, "profile response carried no user")
	}
	return &out.Profile, nil
}

// Notifications lists the user's notifications.
func (c *Client) Notifications(ctx context.Context) ([]Notification, error) {
	var out struct {
		Notifications []Notification `json:"notifications"`
	}
	if err := c.call(ctx, http.MethodGet, "/notifications", nil, &out, 0); err != nil {
		return nil, err
	}
	return out.Notifications, nil
}

// MarkNotificationRead flags one notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, notificationID string) error {
	if notificationID == "" {
		return errors.New(errors.CodeValidation, "notification id is required")
	}
	return c.call(ctx, http.MethodPut, "/notifications/"+notificationID+"/read", nil, nil, 0)
}
