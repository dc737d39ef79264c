package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

const (
	defaultTimeout = 30 * time.Second

	tokenNewPath     = "/token/new/"
	tokenRefreshPath = "/token/refresh/"
	institutionsPath = "/institutions/"
	requisitionsPath = "/requisitions/"
	accountsPath     = "/accounts/"
)

// Client handles communication with the open banking aggregator API.
// It holds the portal credentials but no token state; callers pass the
// access token into each data call.
type Client struct {
	httpClient *http.Client
	baseURL    string
	secretID   string
	secretKey  string
}

// NewClient creates a new aggregator API client.
func NewClient(baseURL, secretID, secretKey string) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL:   baseURL,
		secretID:  secretID,
		secretKey: secretKey,
	}
}

// GenerateToken issues a fresh access/refresh token pair from the
// portal credentials.
func (c *Client) GenerateToken(ctx context.Context) (TokenPair, error) {
	payload := map[string]string{
		"secret_id":  c.secretID,
		"secret_key": c.secretKey,
	}
	var pair TokenPair
	if err := c.do(ctx, http.MethodPost, tokenNewPath, "", payload, &pair); err != nil {
		return TokenPair{}, errors.Wrap(err, "Client.GenerateToken")
	}
	return pair, nil
}

// RefreshToken exchanges a refresh token for new access fields.
func (c *Client) RefreshToken(ctx context.Context, refresh string) (TokenRefresh, error) {
	payload := map[string]string{"refresh": refresh}
	var refreshed TokenRefresh
	if err := c.do(ctx, http.MethodPost, tokenRefreshPath, "", payload, &refreshed); err != nil {
		return TokenRefresh{}, errors.Wrap(err, "Client.RefreshToken")
	}
	return refreshed, nil
}

// Institutions lists the banks available to link. A country code
// narrows the listing to that country; empty means all countries.
func (c *Client) Institutions(ctx context.Context, token, country string) ([]Institution, error) {
	path := institutionsPath
	if country != "" {
		path += "?country=" + url.QueryEscape(country)
	}
	var institutions []Institution
	if err := c.do(ctx, http.MethodGet, path, token, nil, &institutions); err != nil {
		return nil, errors.Wrap(err, "Client.Institutions")
	}
	return institutions, nil
}

// CreateRequisition starts a consent session with the given bank and
// returns the requisition id plus the link the end user must visit.
// The reference id is a caller-supplied unique value the aggregator
// uses for idempotency and tracing.
func (c *Client) CreateRequisition(ctx context.Context, token, institutionID, redirect, reference string) (Agreement, error) {
	payload := map[string]string{
		"institution_id": institutionID,
		"redirect":       redirect,
		"reference":      reference,
	}
	var created struct {
		ID   string `json:"id"`
		Link string `json:"link"`
	}
	if err := c.do(ctx, http.MethodPost, requisitionsPath, token, payload, &created); err != nil {
		return Agreement{}, errors.Wrap(err, "Client.CreateRequisition")
	}
	return Agreement{
		RequisitionID: created.ID,
		InstitutionID: institutionID,
		ReferenceID:   reference,
		ConsentLink:   created.Link,
	}, nil
}

// Requisition looks up which accounts were linked under a requisition.
func (c *Client) Requisition(ctx context.Context, token, requisitionID string) (Requisition, error) {
	var requisition Requisition
	path := requisitionsPath + requisitionID + "/"
	if err := c.do(ctx, http.MethodGet, path, token, nil, &requisition); err != nil {
		return Requisition{}, errors.Wrap(err, "Client.Requisition")
	}
	return requisition, nil
}

// AccountBundle assembles the full data set for one account. The first
// failing sub-fetch aborts the whole bundle; no partial result is
// returned.
func (c *Client) AccountBundle(ctx context.Context, token, accountID string) (AccountBundle, error) {
	var bundle AccountBundle

	subFetches := []struct {
		suffix string
		target *json.RawMessage
	}{
		{"", &bundle.Metadata},
		{"details/", &bundle.Details},
		{"balances/", &bundle.Balances},
		{"transactions/", &bundle.Transactions},
	}

	for _, sub := range subFetches {
		path := accountsPath + accountID + "/" + sub.suffix
		if err := c.do(ctx, http.MethodGet, path, token, nil, sub.target); err != nil {
			return AccountBundle{}, errors.Wrapf(err, "Client.AccountBundle %s", path)
		}
	}

	return bundle, nil
}

// do performs one aggregator call: build the request, attach the
// bearer token when present, and decode the response into out. Non-2xx
// responses come back as a normalized *APIError.
func (c *Client) do(ctx context.Context, method, path, token string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		apiErr, err := Normalize(string(raw))
		if err != nil {
			return err
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}
