package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/PancyStudios/SentinelGo/pkg/logger"
)

// KeepAliveInterval is how often the keep-alive URL is requested
const KeepAliveInterval = 5 * time.Minute

// KeepAlive requests url every interval until ctx is cancelled. Hosts that
// sleep idle processes stay awake as long as they see traffic.
func KeepAlive(ctx context.Context, url string, interval time.Duration) {
	if url == "" {
		return
	}
	if interval <= 0 {
		interval = KeepAliveInterval
	}

	client := &http.Client{Timeout: 10 * time.Second}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.System(fmt.Sprintf("Keep-alive activo cada %s hacia %s", interval, url), "KeepAlive")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ping(ctx, client, url); err != nil {
				logger.Warn("Keep-alive fallido: "+err.Error(), "KeepAlive")
			}
		}
	}
}

func ping(ctx context.Context, client *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status %d", resp.StatusCode)
	}
	return nil
}
