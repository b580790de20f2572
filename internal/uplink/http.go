// internal/uplink/http.go
package uplink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mkarlsen/meshtemp/internal/config"
)

// HTTPPublisher posts reports to a collector endpoint. Stateless: one
// report, one request.
type HTTPPublisher struct {
	endpoint string
	cli      *http.Client
}

func NewHTTPPublisher(cfg config.HTTPConfig) *HTTPPublisher {
	return &HTTPPublisher{
		endpoint: cfg.Endpoint,
		cli: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond,
		},
	}
}

func (p *HTTPPublisher) Publish(ctx context.Context, r Report) error {
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("uplink: encode report: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("uplink: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.cli.Do(req)
	if err != nil {
		return fmt.Errorf("uplink: post %s: %w", p.endpoint, err)
	}
	defer resp.Body.Close()

	// Drain so the transport can reuse the connection.
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("uplink: collector answered %s", resp.Status)
	}
	return nil
}
