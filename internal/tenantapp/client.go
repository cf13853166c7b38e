package tenantapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ServiceKind selects which of a tenant's service endpoints a client talks
// to. The set is closed; clients are built from a URL template plus the
// per-tenant secret, never by reflection.
type ServiceKind string

const (
	// KindApp is the tenant's business-application API.
	KindApp ServiceKind = "app"
	// KindDrive is the tenant's document-drive API.
	KindDrive ServiceKind = "drive"
)

var kindPaths = map[ServiceKind]string{
	KindApp:   "",
	KindDrive: "/drive",
}

// SecretSource looks up per-tenant secrets from the registry's system-user
// attribute bag.
type SecretSource interface {
	UserAttribute(ctx context.Context, userID, key string) ([]string, error)
}

// Factory builds clients for a tenant's own APIs, authenticated with the
// secret minted for the tenant at submission time.
type Factory struct {
	secrets      SecretSource
	systemUserID string
	urlTemplate  string
	secretPrefix string
}

func NewFactory(secrets SecretSource, systemUserID, urlTemplate, secretPrefix string) *Factory {
	return &Factory{
		secrets:      secrets,
		systemUserID: systemUserID,
		urlTemplate:  urlTemplate,
		secretPrefix: secretPrefix,
	}
}

// Client returns a client for the given service kind of a tenant. It fails
// when the kind is unknown or no secret is stored for the tenant.
func (f *Factory) Client(ctx context.Context, kind ServiceKind, tenantHost string) (*Client, error) {
	suffix, ok := kindPaths[kind]
	if !ok {
		return nil, fmt.Errorf("unknown tenant service kind %q", kind)
	}

	values, err := f.secrets.UserAttribute(ctx, f.systemUserID, f.secretPrefix+tenantHost)
	if err != nil {
		return nil, fmt.Errorf("look up secret for %s: %w", tenantHost, err)
	}
	if len(values) == 0 || values[0] == "" {
		return nil, fmt.Errorf("no secret stored for tenant %s", tenantHost)
	}

	return &Client{
		baseURL: fmt.Sprintf(f.urlTemplate, tenantHost) + suffix,
		secret:  values[0],
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// CreateDefaultUser builds an app client for the tenant and creates its
// default application user in one step.
func (f *Factory) CreateDefaultUser(ctx context.Context, tenantHost string, req CreateUserRequest) error {
	client, err := f.Client(ctx, KindApp, tenantHost)
	if err != nil {
		return err
	}
	return client.CreateUser(ctx, req)
}

// Client talks to one service of one tenant.
type Client struct {
	baseURL    string
	secret     string
	httpClient *http.Client
}

// CreateUserRequest seeds the default application user inside a new tenant.
type CreateUserRequest struct {
	Email     string   `json:"email"`
	FullName  string   `json:"full_name"`
	Roles     []string `json:"roles"`
	SendEmail bool     `json:"send_welcome_email"`
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
	req.Header.Set("Authorization", "Bearer "+c.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tenant API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("tenant API %s %s: status %d", method, path, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// CreateUser creates an application user inside the tenant.
func (c *Client) CreateUser(ctx context.Context, req CreateUserRequest) error {
	return c.doJSON(ctx, http.MethodPost, "/users", req, nil)
}
