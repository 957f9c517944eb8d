package session

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Diegogtz03/kofy-app/pkg/config"
	"github.com/Diegogtz03/kofy-app/pkg/interfaces"
	"github.com/Diegogtz03/kofy-app/pkg/logger"
	"github.com/Diegogtz03/kofy-app/pkg/monitoring"
	"github.com/Diegogtz03/kofy-app/pkg/types"
)

// Backend endpoint paths. The backend uses POST uniformly for every call.
const (
	pathRegisterSession     = "/speech/registerSession"
	pathSendSession         = "/speech/sendSession"
	pathGetSession          = "/speech/getSession"
	pathDeleteSession       = "/speech/deleteSession"
	pathPrescriptionSummary = "/speech/getPrescriptionSummary"
)

// Client is the production SessionAPI implementation over the remote HTTP
// backend
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a new session backend client
func NewClient(cfg *config.BackendConfig, log *logger.Logger) interfaces.SessionAPI {
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeout) * time.Second,
		},
		logger: log,
	}
}

// sessionBody is the request body shared by the session endpoints
type sessionBody struct {
	Session  string `json:"session"`
	AccessID string `json:"accessId"`
}

// openSessionResult is the response of a session registration
type openSessionResult struct {
	AccessID string `json:"access_id"`
}

// prescriptionBody is the request body for prescription extraction
type prescriptionBody struct {
	Prescription string `json:"prescription"`
	PatientInfo  string `json:"patientInfo"`
}

// OpenSession registers a new consultation session and returns its id
func (c *Client) OpenSession(ctx context.Context, token string) (string, error) {
	var result openSessionResult
	if err := c.post(ctx, pathRegisterSession, token, struct{}{}, &result); err != nil {
		return "", err
	}

	if result.AccessID == "" {
		return "", types.NewServerError(types.ErrCodeServerError,
			"backend returned an empty session id", nil)
	}

	c.logger.WithSessionID(result.AccessID).Info("Opened consultation session")
	return result.AccessID, nil
}

// SubmitTranscript sends the accumulated transcript for the session
func (c *Client) SubmitTranscript(ctx context.Context, token, sessionID, text string) error {
	body := sessionBody{Session: text, AccessID: sessionID}
	return c.post(ctx, pathSendSession, token, body, nil)
}

// PollSummary checks whether the summary for a session is ready
func (c *Client) PollSummary(ctx context.Context, token, sessionID string) (*types.SummaryPoll, error) {
	body := sessionBody{AccessID: sessionID}

	var result types.SummaryPoll
	if err := c.post(ctx, pathGetSession, token, body, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// EndSession releases the remote session
func (c *Client) EndSession(ctx context.Context, token, sessionID string) error {
	body := sessionBody{AccessID: sessionID}
	return c.post(ctx, pathDeleteSession, token, body, nil)
}

// SubmitPrescriptionText converts raw prescription text into structured
// explanations and reminder candidates
func (c *Client) SubmitPrescriptionText(ctx context.Context, token, text, patientContext string) (*types.PrescriptionExtraction, error) {
	body := prescriptionBody{Prescription: text, PatientInfo: patientContext}

	var result types.PrescriptionExtraction
	if err := c.post(ctx, pathPrescriptionSummary, token, body, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

// post issues an authenticated JSON POST and decodes the response into out.
// Transport failures map to Network errors, 401/403 to Unauthorized, 4xx to
// Validation and any other non-2xx status to ServerError.
func (c *Client) post(ctx context.Context, path, token string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return types.NewInternalError(types.ErrCodeInternalError,
			"failed to encode request body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return types.NewInternalError(types.ErrCodeInternalError,
			"failed to build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.RemoteCall(path, 0, time.Since(start).Milliseconds(), err)
		monitoring.RecordBackendCall(path, "network_error", time.Since(start))
		return types.NewNetworkError(types.ErrCodeNetworkFailure,
			"could not reach the consultation service", err)
	}
	defer resp.Body.Close()

	c.logger.RemoteCall(path, resp.StatusCode, time.Since(start).Milliseconds(), nil)
	monitoring.RecordBackendCall(path, fmt.Sprintf("%d", resp.StatusCode), time.Since(start))

	if err := mapStatus(resp); err != nil {
		return err
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.NewServerError(types.ErrCodeServerError,
			"backend returned a malformed response", map[string]interface{}{
				"endpoint": path,
			})
	}

	return nil
}

// mapStatus translates a non-2xx response into the structured error taxonomy
func mapStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	// Body content is advisory; keep a short prefix for diagnostics
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return types.NewUnauthorizedError(types.ErrCodeUnauthorized,
			"your session has expired, please sign in again")
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return types.NewValidationError(types.ErrCodeInvalidInput,
			"the consultation service rejected the request", map[string]interface{}{
				"status": resp.StatusCode,
				"body":   string(raw),
			})
	default:
		return types.NewServerError(types.ErrCodeServerError,
			"the consultation service is unavailable, try again later", map[string]interface{}{
				"status": resp.StatusCode,
			})
	}
}
