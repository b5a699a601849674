package telephony

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/lumenlocal/rankdesk/internal/config"
	"github.com/lumenlocal/rankdesk/internal/pkg/httpretry"
)

// AvailableNumber is one provider search result.
type AvailableNumber struct {
	Number   string `json:"phone_number"`
	Locality string `json:"locality"`
	Region   string `json:"region"`
}

// PurchasedNumber is the provider's record of a bought number.
type PurchasedNumber struct {
	SID    string `json:"sid"`
	Number string `json:"phone_number"`
}

// Client is a phone provider API client. The provider speaks form-encoded
// requests with Basic Auth and JSON responses.
type Client struct {
	baseURL    string
	accountSID string
	authToken  string
	httpClient httpretry.HTTPDoer
}

// NewClient creates a phone provider API client.
func NewClient(cfg config.TelephonyConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, 3),
	}
}

// doRequest makes an HTTP request with account Basic Auth. Form params go in
// the body for POST and the query string for GET.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	fullURL := c.baseURL + "/2010-04-01/Accounts/" + c.accountSID + path

	var body io.Reader
	if method == http.MethodGet {
		if len(params) > 0 {
			fullURL += "?" + params.Encode()
		}
	} else if params != nil {
		body = strings.NewReader(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.SetBasicAuth(c.accountSID, c.authToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// SearchAvailable lists purchasable local numbers, optionally narrowed to an
// area code.
func (c *Client) SearchAvailable(ctx context.Context, areaCode string, limit int) ([]AvailableNumber, error) {
	params := url.Values{}
	if areaCode != "" {
		params.Set("AreaCode", areaCode)
	}
	if limit > 0 {
		params.Set("PageSize", fmt.Sprintf("%d", limit))
	}

	body, err := c.doRequest(ctx, http.MethodGet, "/AvailablePhoneNumbers/US/Local.json", params)
	if err != nil {
		return nil, err
	}

	var out struct {
		AvailablePhoneNumbers []AvailableNumber `json:"available_phone_numbers"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}
	if len(out.AvailablePhoneNumbers) == 0 {
		return nil, ErrNoNumbersAvailable
	}
	return out.AvailablePhoneNumbers, nil
}

// Purchase buys a number and points its voice webhook at our receiver.
func (c *Client) Purchase(ctx context.Context, number, voiceURL string) (*PurchasedNumber, error) {
	params := url.Values{}
	params.Set("PhoneNumber", number)
	if voiceURL != "" {
		params.Set("VoiceUrl", voiceURL)
		params.Set("VoiceMethod", http.MethodPost)
	}

	body, err := c.doRequest(ctx, http.MethodPost, "/IncomingPhoneNumbers.json", params)
	if err != nil {
		return nil, err
	}

	var out PurchasedNumber
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parsing purchase response: %w", err)
	}
	return &out, nil
}

// ReleaseNumber returns a number to the provider.
func (c *Client) ReleaseNumber(ctx context.Context, providerSID string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/IncomingPhoneNumbers/"+providerSID+".json", nil)
	return err
}
