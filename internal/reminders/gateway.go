package reminders

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Diegogtz03/kofy-app/pkg/config"
	"github.com/Diegogtz03/kofy-app/pkg/interfaces"
	"github.com/Diegogtz03/kofy-app/pkg/logger"
	"github.com/Diegogtz03/kofy-app/pkg/types"
)

// Gateway endpoint paths
const (
	pathSchedule = "/notifications/schedule"
	pathCancel   = "/notifications/cancel"
	pathPending  = "/notifications/pending"
)

// Gateway is the production NotificationScheduler implementation over the
// system notification gateway's HTTP API
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewGateway creates a new notification gateway client
func NewGateway(cfg *config.NotificationConfig, log *logger.Logger) interfaces.NotificationScheduler {
	return &Gateway{
		baseURL: cfg.GatewayURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
		},
		logger: log,
	}
}

type scheduleRequest struct {
	Title                 string `json:"title"`
	Body                  string `json:"body"`
	FirstFireDelaySeconds int64  `json:"first_fire_delay_seconds"`
	Repeating             bool   `json:"repeating"`
}

type scheduleResponse struct {
	Handle string `json:"handle"`
}

type cancelRequest struct {
	Handle string `json:"handle"`
}

type pendingResponse struct {
	Triggers []types.PendingTrigger `json:"triggers"`
}

// Schedule arms a trigger and returns its opaque handle
func (g *Gateway) Schedule(ctx context.Context, title, body string, firstFireDelay time.Duration, repeating bool) (string, error) {
	req := scheduleRequest{
		Title:                 title,
		Body:                  body,
		FirstFireDelaySeconds: int64(firstFireDelay.Seconds()),
		Repeating:             repeating,
	}

	var resp scheduleResponse
	if err := g.post(ctx, pathSchedule, req, &resp); err != nil {
		return "", err
	}

	if resp.Handle == "" {
		return "", types.NewServerError(types.ErrCodeServerError,
			"notification gateway returned an empty handle", nil)
	}

	return resp.Handle, nil
}

// Cancel disarms a trigger. Unknown or already-fired handles are a no-op.
func (g *Gateway) Cancel(ctx context.Context, handle string) error {
	return g.post(ctx, pathCancel, cancelRequest{Handle: handle}, nil)
}

// ListPending reports all currently armed triggers
func (g *Gateway) ListPending(ctx context.Context) ([]types.PendingTrigger, error) {
	var resp pendingResponse
	if err := g.post(ctx, pathPending, struct{}{}, &resp); err != nil {
		return nil, err
	}
	return resp.Triggers, nil
}

// post issues a JSON POST against the gateway and decodes the response
func (g *Gateway) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return types.NewInternalError(types.ErrCodeInternalError,
			"failed to encode gateway request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return types.NewInternalError(types.ErrCodeInternalError,
			"failed to build gateway request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return types.NewNetworkError(types.ErrCodeNetworkFailure,
			"could not reach the notification gateway", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.NewServerError(types.ErrCodeServerError,
			"notification gateway request failed", map[string]interface{}{
				"status":   resp.StatusCode,
				"endpoint": path,
			})
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewServerError(types.ErrCodeServerError,
			"notification gateway returned a malformed response", map[string]interface{}{
				"endpoint": path,
			})
	}

	return nil
}
