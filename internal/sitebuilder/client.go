package sitebuilder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/marit/provisioner/internal/model"
)

// Client talks to the external site-provisioning service that builds tenant
// sites.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
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
		return fmt.Errorf("site builder request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("site builder %s %s: status %d", method, path, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// CreateSite submits a tenant build request and returns the builder's job id.
// A success response without a job id is an error.
func (c *Client) CreateSite(ctx context.Context, tenantHost, companyName string) (string, error) {
	var resp createSiteResponse
	body := createSiteRequest{TenantHost: tenantHost, CompanyName: companyName}
	if err := c.doJSON(ctx, http.MethodPost, "/sites", body, &resp); err != nil {
		return "", err
	}
	if resp.JobID == "" {
		return "", fmt.Errorf("site builder returned no job id for %s", tenantHost)
	}
	return resp.JobID, nil
}

// JobStatus queries the builder's status for a job. Transport and decode
// failures surface as errors; callers treat them as an unknown status.
func (c *Client) JobStatus(ctx context.Context, jobID string) (model.ExternalStatus, error) {
	var resp jobStatusResponse
	path := fmt.Sprintf("/jobs/%s", url.PathEscape(jobID))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return model.ExternalUnknown, err
	}
	return model.ParseExternalStatus(resp.Status), nil
}

// DeleteSite asks the builder to tear down a tenant site.
func (c *Client) DeleteSite(ctx context.Context, tenantHost string) error {
	path := fmt.Sprintf("/sites/%s", url.PathEscape(tenantHost))
	return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
}
