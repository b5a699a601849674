package seoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/lumenlocal/rankdesk/internal/config"
	"github.com/lumenlocal/rankdesk/internal/domain"
	"github.com/lumenlocal/rankdesk/internal/pkg/httpretry"
)

// DefaultDepth is how far down the SERP a lookup checks. Position 0 in a
// RankResult means the target domain was not found within this depth.
const DefaultDepth = 100

// RankTask describes one SERP check to submit to the provider.
type RankTask struct {
	Phrase       string
	TargetDomain string
	LocationCode int
	LanguageCode string
	Depth        int
}

// RankResult is the outcome of one completed SERP check.
type RankResult struct {
	Position  int
	FoundURL  string
	CheckedAt time.Time
}

// Client is a rank tracking API client. Credentials come per request because
// each call runs under whichever pool key was checked out for it.
type Client struct {
	baseURL    string
	httpClient httpretry.HTTPDoer
	limiter    *rate.Limiter
}

// NewClient creates a rank tracking API client.
func NewClient(cfg config.SEOAPIConfig) *Client {
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpretry.NewRetryClient(&http.Client{
			Timeout: cfg.Timeout(),
		}, 3),
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
	}
}

// doRequest makes an HTTP request with the key's Basic Auth credentials.
func (c *Client) doRequest(ctx context.Context, key *domain.SEOAPIKey, method, path string, body interface{}) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.SetBasicAuth(key.Login, key.Secret)
	req.Header.Set("Content-Type", "application/json")

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
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// Provider wire format. Tasks are posted in a batch; each comes back with an
// id that is polled until the crawl completes.

type taskPostItem struct {
	Keyword      string `json:"keyword"`
	LocationCode int    `json:"location_code"`
	LanguageCode string `json:"language_code"`
	Depth        int    `json:"depth"`
}

type taskEnvelope struct {
	StatusCode int    `json:"status_code"`
	StatusMsg  string `json:"status_message"`
	Tasks      []struct {
		ID         string          `json:"id"`
		StatusCode int             `json:"status_code"`
		StatusMsg  string          `json:"status_message"`
		Result     json.RawMessage `json:"result"`
	} `json:"tasks"`
}

type serpResult struct {
	Datetime string `json:"datetime"`
	Items    []struct {
		Type         string `json:"type"`
		RankAbsolute int    `json:"rank_absolute"`
		Domain       string `json:"domain"`
		URL          string `json:"url"`
	} `json:"items"`
}

// Task state codes from the provider. 20100 = created, 40601/40602 = still
// in queue or crawling.
const (
	statusTaskCreated    = 20100
	statusTaskInQueue    = 40601
	statusTaskInProgress = 40602
)

// PostTasks submits a batch of SERP checks and returns provider task IDs in
// the same order.
func (c *Client) PostTasks(ctx context.Context, key *domain.SEOAPIKey, tasks []RankTask) ([]string, error) {
	payload := make([]taskPostItem, 0, len(tasks))
	for _, t := range tasks {
		depth := t.Depth
		if depth <= 0 {
			depth = DefaultDepth
		}
		payload = append(payload, taskPostItem{
			Keyword:      t.Phrase,
			LocationCode: t.LocationCode,
			LanguageCode: t.LanguageCode,
			Depth:        depth,
		})
	}

	body, err := c.doRequest(ctx, key, http.MethodPost, "/v3/serp/google/organic/task_post", payload)
	if err != nil {
		return nil, err
	}

	var env taskEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("parsing task_post response: %w", err)
	}

	ids := make([]string, 0, len(env.Tasks))
	for _, t := range env.Tasks {
		if t.StatusCode != statusTaskCreated {
			return nil, fmt.Errorf("task rejected: %s (code %d)", t.StatusMsg, t.StatusCode)
		}
		ids = append(ids, t.ID)
	}
	if len(ids) != len(tasks) {
		return nil, fmt.Errorf("provider returned %d tasks for %d submitted", len(ids), len(tasks))
	}
	return ids, nil
}

// GetTaskResult polls one task and extracts the target domain's position.
// Returns ErrTaskNotReady while the crawl is still running.
func (c *Client) GetTaskResult(ctx context.Context, key *domain.SEOAPIKey, taskID, targetDomain string) (*RankResult, error) {
	body, err := c.doRequest(ctx, key, http.MethodGet, "/v3/serp/google/organic/task_get/regular/"+taskID, nil)
	if err != nil {
		return nil, err
	}

	var env taskEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("parsing task_get response: %w", err)
	}
	if len(env.Tasks) == 0 {
		return nil, fmt.Errorf("task %s: empty response", taskID)
	}

	t := env.Tasks[0]
	switch t.StatusCode {
	case statusTaskInQueue, statusTaskInProgress:
		return nil, ErrTaskNotReady
	}
	if t.StatusCode >= 40000 {
		return nil, fmt.Errorf("task %s failed: %s (code %d)", taskID, t.StatusMsg, t.StatusCode)
	}

	var results []serpResult
	if err := json.Unmarshal(t.Result, &results); err != nil {
		return nil, fmt.Errorf("parsing task %s result: %w", taskID, err)
	}
	if len(results) == 0 {
		return nil, ErrTaskNotReady
	}

	res := &RankResult{CheckedAt: time.Now().UTC()}
	if ts, err := time.Parse("2006-01-02 15:04:05 -07:00", results[0].Datetime); err == nil {
		res.CheckedAt = ts.UTC()
	}

	target := normalizeDomain(targetDomain)
	for _, item := range results[0].Items {
		if item.Type != "organic" {
			continue
		}
		if normalizeDomain(item.Domain) == target {
			res.Position = item.RankAbsolute
			res.FoundURL = item.URL
			break
		}
	}
	return res, nil
}

func normalizeDomain(d string) string {
	d = strings.ToLower(strings.TrimSpace(d))
	return strings.TrimPrefix(d, "www.")
}
