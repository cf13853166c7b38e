package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/marit/provisioner/internal/model"
)

// ErrNotFound is returned when the registry has no record for a lookup.
var ErrNotFound = errors.New("registry: not found")

// Client talks to the organization/identity registry. The registry's
// attribute bags are the system's only persistent store for organization
// metadata, permissions, and per-tenant secrets.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("registry request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("registry %s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("registry %s %s: status %d", method, path, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// --- Organizations ---

func (c *Client) CreateOrganization(ctx context.Context, org *model.Organization) (*model.Organization, error) {
	var created model.Organization
	if err := c.doJSON(ctx, http.MethodPost, "/organizations", org, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (c *Client) GetOrganization(ctx context.Context, id string) (*model.Organization, error) {
	var org model.Organization
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/organizations/%s", url.PathEscape(id)), nil, &org); err != nil {
		return nil, err
	}
	return &org, nil
}

func (c *Client) GetOrganizationByAlias(ctx context.Context, alias string) (*model.Organization, error) {
	orgs, err := c.listOrganizations(ctx, url.Values{"alias": {alias}})
	if err != nil {
		return nil, err
	}
	if len(orgs) == 0 {
		return nil, fmt.Errorf("organization alias %s: %w", alias, ErrNotFound)
	}
	return &orgs[0], nil
}

// ListOrganizations returns every organization known to the registry.
func (c *Client) ListOrganizations(ctx context.Context) ([]model.Organization, error) {
	return c.listOrganizations(ctx, nil)
}

// ListOrganizationsByPrefix returns organizations whose name starts with the
// given prefix. Used by DeleteSite to find all of a tenant's organizations.
func (c *Client) ListOrganizationsByPrefix(ctx context.Context, prefix string) ([]model.Organization, error) {
	return c.listOrganizations(ctx, url.Values{"name_prefix": {prefix}})
}

func (c *Client) listOrganizations(ctx context.Context, query url.Values) ([]model.Organization, error) {
	path := "/organizations"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var resp struct {
		Items []model.Organization `json:"items"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

func (c *Client) UpdateOrganization(ctx context.Context, org *model.Organization) error {
	return c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/organizations/%s", url.PathEscape(org.ID)), org, nil)
}

func (c *Client) DeleteOrganization(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/organizations/%s", url.PathEscape(id)), nil, nil)
}

// --- Membership ---

func (c *Client) AddMember(ctx context.Context, orgID, userID string) error {
	body := map[string]string{"user_id": userID}
	return c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/organizations/%s/members", url.PathEscape(orgID)), body, nil)
}

func (c *Client) RemoveMember(ctx context.Context, orgID, userID string) error {
	path := fmt.Sprintf("/organizations/%s/members/%s", url.PathEscape(orgID), url.PathEscape(userID))
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}

// --- Users ---

func (c *Client) GetUser(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/users/%s", url.PathEscape(id)), nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserAttributes returns a user's full attribute bag.
func (c *Client) UserAttributes(ctx context.Context, userID string) (map[string][]string, error) {
	var attrs map[string][]string
	path := fmt.Sprintf("/users/%s/attributes", url.PathEscape(userID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

// SetUserAttributes replaces a user's full attribute bag. Combined with
// UserAttributes this is a read-modify-write with no concurrency guard:
// the registry applies the last write.
func (c *Client) SetUserAttributes(ctx context.Context, userID string, attrs map[string][]string) error {
	path := fmt.Sprintf("/users/%s/attributes", url.PathEscape(userID))
	return c.doJSON(ctx, http.MethodPut, path, attrs, nil)
}

// --- Client applications ---

func (c *Client) FindClientApp(ctx context.Context, name string) (*model.ClientApp, error) {
	var resp struct {
		Items []model.ClientApp `json:"items"`
	}
	path := "/clients?" + url.Values{"name": {name}}.Encode()
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	if len(resp.Items) == 0 {
		return nil, fmt.Errorf("client app %s: %w", name, ErrNotFound)
	}
	return &resp.Items[0], nil
}

func (c *Client) DeleteClientApp(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/clients/%s", url.PathEscape(id)), nil, nil)
}
