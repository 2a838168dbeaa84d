// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package zerobounce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the base URL of the ZeroBounce API.
const DefaultBaseURL = "https://api.zerobounce.net/v2"

// DefaultTimeout bounds a single API request.
const DefaultTimeout = 10 * time.Second

// maxResponseSize limits the size of API responses read.
const maxResponseSize = 1 << 20

// Errors returned by the client.
var (
	ErrNoAPIKey = errors.New("missing ZeroBounce API key")
	ErrAPI      = errors.New("ZeroBounce API error")
)

// Statuses of addresses reported by the API.
const (
	StatusValid   = "valid"
	StatusInvalid = "invalid"
)

// Result is the verdict of the ZeroBounce API about an address. Status is
// "valid", "invalid", or any of the other statuses the API knows about, such
// as "catch-all" and "unknown".
type Result struct {
	Address    string `json:"address"`
	Status     string `json:"status"`
	SubStatus  string `json:"sub_status"`
	DidYouMean string `json:"did_you_mean"`
	Domain     string `json:"domain"`
	MXFound    string `json:"mx_found"`
	MXRecord   string `json:"mx_record"`
	FreeEmail  bool   `json:"free_email"`
}

// Valid returns true if the API considers the address to be valid.
func (r Result) Valid() bool {
	return r.Status == StatusValid
}

// Message returns the verdict as a short human-readable text.
func (r Result) Message() string {
	switch r.Status {
	case StatusValid:
		return fmt.Sprintf("%s is valid.", r.Address)
	case StatusInvalid:
		msg := fmt.Sprintf("%s is invalid", r.Address)
		if r.SubStatus != "" {
			msg += " (" + strings.ReplaceAll(r.SubStatus, "_", " ") + ")"
		}
		if r.DidYouMean != "" {
			return msg + "; did you mean " + r.DidYouMean + "?"
		}
		return msg + "."
	}
	return fmt.Sprintf("%s has status %q.", r.Address, r.Status)
}

// Client validates single addresses using the ZeroBounce API.
type Client struct {
	apiKey    string
	baseURL   string
	ipAddress string
	http      *http.Client
	log       logrus.FieldLogger
}

// Option can be passed to New when creating new [Client] objects.
type Option func(*Client)

// New returns a new [Client] using the specified API key.
func New(apiKey string, options ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: DefaultTimeout},
		log:     logrus.StandardLogger(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// WithBaseURL sets the base URL of the API.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithHTTPClient sets the HTTP client for API requests.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.http = client
	}
}

// WithIPAddress sets the IP address the validated addresses were signed up
// from, if known.
func WithIPAddress(ip string) Option {
	return func(c *Client) {
		c.ipAddress = ip
	}
}

// WithLogger sets the logger for reporting API failures.
func WithLogger(log logrus.FieldLogger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// Validate asks the API about the specified address.
func (c *Client) Validate(ctx context.Context, address string) (Result, error) {
	if c.apiKey == "" {
		return Result{}, ErrNoAPIKey
	}
	query := url.Values{}
	query.Set("api_key", c.apiKey)
	query.Set("email", address)
	query.Set("ip_address", c.ipAddress)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/validate?"+query.Encode(), nil)
	if err != nil {
		return Result{}, err
	}
	log := c.log.WithField("address", address)
	resp, err := c.http.Do(req)
	if err != nil {
		log.Errorf("ZeroBounce API request failed: %s", err)
		// Never leak the API key that is part of the request URL.
		var urlerr *url.Error
		if errors.As(err, &urlerr) {
			err = urlerr.Err
		}
		return Result{}, fmt.Errorf("ZeroBounce API request failed, reason: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Result{}, fmt.Errorf("cannot read ZeroBounce API response, reason: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		log.Errorf("ZeroBounce API returned HTTP status %d", resp.StatusCode)
		return Result{}, fmt.Errorf("%w: HTTP status %d", ErrAPI, resp.StatusCode)
	}
	var apierr struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &apierr); err == nil && apierr.Error != "" {
		log.Errorf("ZeroBounce API error: %s", apierr.Error)
		return Result{}, fmt.Errorf("%w: %s", ErrAPI, apierr.Error)
	}
	var result Result
	if err := json.Unmarshal(body, &result); err != nil {
		return Result{}, fmt.Errorf("%w: malformed response, reason: %s", ErrAPI, err.Error())
	}
	if result.Status == "" {
		return Result{}, fmt.Errorf("%w: response without status", ErrAPI)
	}
	if result.Address == "" {
		result.Address = address
	}
	log.WithField("status", result.Status).Debug("ZeroBounce verdict")
	return result, nil
}

// Precheck returns true if the address contains at least an "@" and a ".",
// which is all that is checked before handing an address to the API.
func Precheck(address string) bool {
	return strings.Contains(address, "@") && strings.Contains(address, ".")
}
