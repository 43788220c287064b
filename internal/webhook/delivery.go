package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/scarzbaddy-lab/unscarred-complete-site/internal/domain"
)

// Delivery posts completed results to an external endpoint. The engine
// dispatches it fire-and-forget; errors only reach the log.
type Delivery struct {
	url    string
	client *http.Client
}

func New(url string, timeout time.Duration) *Delivery {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Delivery{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (d *Delivery) Deliver(ctx context.Context, payload domain.ResultPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal result payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build delivery request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver result: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("deliver result: endpoint returned %s", resp.Status)
	}
	return nil
}
