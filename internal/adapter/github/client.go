// Package github reads public organization data from the GitHub REST API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"messaging-service/pkg/memo"
)

// DefaultBaseURL is the public GitHub API endpoint.
const DefaultBaseURL = "https://api.github.com"

const maxErrorBody = 512

// KeyError reports a path element that could not be resolved in a nested map.
type KeyError struct {
	Key string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("key not found: %q", e.Key)
}

// AccessNestedMap walks m along path and returns the value at its end.
// A missing key, or a step into a value that is not a map, yields a *KeyError naming that key.
func AccessNestedMap(m map[string]any, path ...string) (any, error) {
	var cur any = m
	for _, key := range path {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, &KeyError{Key: key}
		}
		cur, ok = node[key]
		if !ok {
			return nil, &KeyError{Key: key}
		}
	}
	return cur, nil
}

// GetJSON issues one GET request to rawURL and decodes the JSON body.
func GetJSON(ctx context.Context, client *http.Client, rawURL string) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("get %s: unexpected status %d: %s", rawURL, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode response from %s: %w", rawURL, err)
	}
	return payload, nil
}

// HasLicense reports whether repo["license"]["key"] equals key.
func HasLicense(repo map[string]any, key string) bool {
	v, err := AccessNestedMap(repo, "license", "key")
	if err != nil {
		return false
	}
	s, ok := v.(string)
	return ok && s == key
}

// Option configures an OrgClient.
type Option func(*OrgClient)

// WithBaseURL points the client at another API root, such as a test server.
func WithBaseURL(baseURL string) Option {
	return func(c *OrgClient) { c.baseURL = strings.TrimRight(baseURL, "/") }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *OrgClient) { c.http = hc }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *OrgClient) { c.log = log }
}

// OrgClient reads one organization. The organization payload and its repository list
// are each fetched at most once per client.
type OrgClient struct {
	org     string
	baseURL string
	http    *http.Client
	log     *zap.Logger

	orgPayload   memo.Lazy[map[string]any]
	reposPayload memo.Lazy[[]any]
}

// NewOrgClient creates a client for org.
func NewOrgClient(org string, opts ...Option) *OrgClient {
	c := &OrgClient{
		org:     org,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OrgURL returns the API URL of the organization.
func (c *OrgClient) OrgURL() string {
	return c.baseURL + "/orgs/" + url.PathEscape(c.org)
}

// Org returns the organization payload.
func (c *OrgClient) Org(ctx context.Context) (map[string]any, error) {
	return c.orgPayload.Get(func() (map[string]any, error) {
		orgURL := c.OrgURL()
		c.log.Debug("fetching organization", zap.String("url", orgURL))

		payload, err := GetJSON(ctx, c.http, orgURL)
		if err != nil {
			c.log.Error("failed to fetch organization", zap.String("org", c.org), zap.Error(err))
			return nil, err
		}
		m, ok := payload.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("organization %s: expected a JSON object, got %T", c.org, payload)
		}
		return m, nil
	})
}

// PublicReposURL returns the repos_url field of the organization payload.
func (c *OrgClient) PublicReposURL(ctx context.Context) (string, error) {
	org, err := c.Org(ctx)
	if err != nil {
		return "", err
	}
	v, err := AccessNestedMap(org, "repos_url")
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("organization %s: repos_url is %T, not a string", c.org, v)
	}
	return s, nil
}

// ReposPayload returns the repository list of the organization.
func (c *OrgClient) ReposPayload(ctx context.Context) ([]any, error) {
	return c.reposPayload.Get(func() ([]any, error) {
		reposURL, err := c.PublicReposURL(ctx)
		if err != nil {
			return nil, err
		}
		c.log.Debug("fetching repositories", zap.String("url", reposURL))

		payload, err := GetJSON(ctx, c.http, reposURL)
		if err != nil {
			c.log.Error("failed to fetch repositories", zap.String("org", c.org), zap.Error(err))
			return nil, err
		}
		repos, ok := payload.([]any)
		if !ok {
			return nil, fmt.Errorf("repositories of %s: expected a JSON array, got %T", c.org, payload)
		}
		return repos, nil
	})
}

// PublicRepos returns the repository names of the organization. A non-empty license
// keeps only repositories with that license key.
func (c *OrgClient) PublicRepos(ctx context.Context, license string) ([]string, error) {
	repos, err := c.ReposPayload(ctx)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(repos))
	for _, r := range repos {
		repo, ok := r.(map[string]any)
		if !ok {
			continue
		}
		if license != "" && !HasLicense(repo, license) {
			continue
		}
		if name, ok := repo["name"].(string); ok {
			names = append(names, name)
		}
	}
	return names, nil
}
