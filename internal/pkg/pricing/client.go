// Package pricing resolves pricing references through the external pricing
// service and builds price previews from entitlement snapshots.
package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

const resolveBatchPath = "/v1/resolve-batch"

// Price is a resolved pricing reference.
type Price struct {
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency,omitempty"`
}

// Client talks to the pricing service. With an empty BaseURL every
// reference resolves to unknown.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type resolveBatchRequest struct {
	Refs []string `json:"refs"`
}

type resolveBatchResponse struct {
	Prices map[string]*Price `json:"prices"`
}

// ResolveBatch looks up refs in one request. The result has an entry for
// every non-empty ref; unknown or failed lookups map to nil. It never
// returns an error: pricing is optional for every caller.
func (c *Client) ResolveBatch(ctx context.Context, refs []string) map[string]*Price {
	unique := uniqueRefs(refs)
	out := make(map[string]*Price, len(unique))
	for _, ref := range unique {
		out[ref] = nil
	}
	if c == nil || c.BaseURL == "" || len(unique) == 0 {
		return out
	}

	prices, err := c.resolveBatch(ctx, unique)
	if err != nil {
		log.Warnf("pricing resolve-batch failed: %v", err)
		return out
	}
	for ref, price := range prices {
		if _, wanted := out[ref]; wanted {
			out[ref] = price
		}
	}
	return out
}

func (c *Client) resolveBatch(ctx context.Context, refs []string) (map[string]*Price, error) {
	body, err := json.Marshal(resolveBatchRequest{Refs: refs})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+resolveBatchPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("pricing service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed resolveBatchResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return nil, fmt.Errorf("decode pricing response: %w", err)
	}
	return parsed.Prices, nil
}

func uniqueRefs(refs []string) []string {
	seen := make(map[string]struct{}, len(refs))
	out := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref == "" {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	sort.Strings(out)
	return out
}
