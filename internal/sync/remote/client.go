package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/facturo/backend/internal/models"
	"github.com/facturo/backend/internal/sync/queue"
)

// Client applies queue entries against the remote REST backend.
// It never touches the local store: Apply is a pure function of the in-memory
// entry, so callers are free to hold no store lock while it runs.
type Client struct {
	cfg  *Config
	http *http.Client
}

// NewClient creates a Client for the given remote configuration.
func NewClient(cfg *Config) *Client {
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Apply maps one entry to one REST call:
//
//	insert -> POST   {base}/rest/v1/{table}
//	update -> PATCH  {base}/rest/v1/{table}?id=eq.{record_id}
//	delete -> DELETE {base}/rest/v1/{table}?id=eq.{record_id}
//
// Any 2xx is success. Failures are returned as *Failure with the response
// body (best effort) or the transport error as detail.
func (c *Client) Apply(ctx context.Context, entry *models.QueueEntry) error {
	endpoint := fmt.Sprintf("%s/rest/v1/%s", c.cfg.BaseURL, entry.Table)

	switch entry.Operation {
	case queue.OperationInsert:
		if len(entry.Data) == 0 {
			return malformed("no data for insert")
		}
		return c.do(ctx, http.MethodPost, endpoint, entry.Data, "insert")

	case queue.OperationUpdate:
		if entry.RecordID == "" {
			return malformed("no record_id for update")
		}
		if len(entry.Data) == 0 {
			return malformed("no data for update")
		}
		target := endpoint + "?id=eq." + url.QueryEscape(entry.RecordID)
		return c.do(ctx, http.MethodPatch, target, entry.Data, "update")

	case queue.OperationDelete:
		if entry.RecordID == "" {
			return malformed("no record_id for delete")
		}
		target := endpoint + "?id=eq." + url.QueryEscape(entry.RecordID)
		return c.do(ctx, http.MethodDelete, target, nil, "delete")

	default:
		return unknownOperation(entry.Operation)
	}
}

func (c *Client) do(ctx context.Context, method, target string, body []byte, op string) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return transport(err)
	}

	req.Header.Set("apikey", c.cfg.APIKey)
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	// No response echo needed, keep payloads small
	req.Header.Set("Prefer", "return=minimal")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return transport(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(resp.Body)
		return rejected(op, string(text))
	}
	return nil
}
