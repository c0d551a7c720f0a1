// Package directory adapts the external directory service used to look up
// people and projects. The manager treats it as opaque: only the handful
// of attributes it consumes are modeled.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Person holds the directory attributes the manager consumes.
type Person struct {
	UID          string   `json:"uid"`
	ID           string   `json:"id"`
	Name         string   `json:"cn"`
	GivenName    string   `json:"given_name"`
	Email        string   `json:"email"`
	Entitlements []string `json:"entitlements"`
}

// Project holds the directory attributes of an accounting project.
type Project struct {
	Account string `json:"account"`
	Name    string `json:"name"`
	PI      string `json:"pi"` // uid of the principal investigator
}

// Directory resolves people and projects. Implementations return nil
// without error when the subject does not exist.
type Directory interface {
	GetPerson(ctx context.Context, uid string) (*Person, error)
	GetPersonByID(ctx context.Context, id string) (*Person, error)
	GetProject(ctx context.Context, account string) (*Project, error)
}

// Client is an HTTP JSON directory client.
type Client struct {
	base   string
	client *http.Client
}

// NewClient returns a directory client for the given base URL.
func NewClient(base string) *Client {
	return &Client{
		base:   base,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) GetPerson(ctx context.Context, uid string) (*Person, error) {
	var p Person
	ok, err := c.get(ctx, "/person/"+url.PathEscape(uid), &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

func (c *Client) GetPersonByID(ctx context.Context, id string) (*Person, error) {
	var p Person
	ok, err := c.get(ctx, "/person-by-id/"+url.PathEscape(id), &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

func (c *Client) GetProject(ctx context.Context, account string) (*Project, error) {
	var p Project
	ok, err := c.get(ctx, "/project/"+url.PathEscape(account), &p)
	if err != nil || !ok {
		return nil, err
	}
	return &p, nil
}

// get fetches one resource; the bool result is false on 404.
func (c *Client) get(ctx context.Context, path string, out interface{}) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return false, fmt.Errorf("directory: build request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("directory: get %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("directory: get %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("directory: decode %s: %w", path, err)
	}
	return true, nil
}
