package registry

import (
	"context"
	"errors"
	"fmt"
)

// Attribute helpers on a single user's bag. Each is a read-modify-write
// against the registry with last-writer-wins semantics; concurrent updates
// to the same user can clobber each other.

// SetUserAttribute replaces one key of a user's attribute bag.
func (c *Client) SetUserAttribute(ctx context.Context, userID, key string, values []string) error {
	attrs, err := c.UserAttributes(ctx, userID)
	if err != nil {
		return fmt.Errorf("read attributes of %s: %w", userID, err)
	}
	if attrs == nil {
		attrs = map[string][]string{}
	}
	attrs[key] = values
	return c.SetUserAttributes(ctx, userID, attrs)
}

// AppendUserAttribute appends one value to a key of a user's attribute bag.
func (c *Client) AppendUserAttribute(ctx context.Context, userID, key, value string) error {
	attrs, err := c.UserAttributes(ctx, userID)
	if err != nil {
		return fmt.Errorf("read attributes of %s: %w", userID, err)
	}
	if attrs == nil {
		attrs = map[string][]string{}
	}
	attrs[key] = append(attrs[key], value)
	return c.SetUserAttributes(ctx, userID, attrs)
}

// DeleteUserAttribute removes a key from a user's attribute bag. Removing a
// key that does not exist is a no-op.
func (c *Client) DeleteUserAttribute(ctx context.Context, userID, key string) error {
	attrs, err := c.UserAttributes(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("read attributes of %s: %w", userID, err)
	}
	if _, ok := attrs[key]; !ok {
		return nil
	}
	delete(attrs, key)
	return c.SetUserAttributes(ctx, userID, attrs)
}

// UserAttribute reads one key of a user's attribute bag. A missing key
// returns nil, not an error.
func (c *Client) UserAttribute(ctx context.Context, userID, key string) ([]string, error) {
	attrs, err := c.UserAttributes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("read attributes of %s: %w", userID, err)
	}
	return attrs[key], nil
}
