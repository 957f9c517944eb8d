package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Diegogtz03/kofy-app/pkg/config"
	"github.com/Diegogtz03/kofy-app/pkg/logger"
	"github.com/Diegogtz03/kofy-app/pkg/types"
)

func newTestClient(serverURL string) *Client {
	cfg := &config.BackendConfig{BaseURL: serverURL, RequestTimeout: 5}
	return NewClient(cfg, logger.New("debug")).(*Client)
}

func TestClient_OpenSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/speech/registerSession", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		json.NewEncoder(w).Encode(map[string]string{"access_id": "S123"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	sessionID, err := client.OpenSession(context.Background(), "test-token")
	require.NoError(t, err)
	assert.Equal(t, "S123", sessionID)
}

func TestClient_OpenSession_EmptyIDIsServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.OpenSession(context.Background(), "test-token")
	require.Error(t, err)
	assert.True(t, types.IsType(err, types.ErrorTypeServer))
}

func TestClient_SubmitTranscript(t *testing.T) {
	var body map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/speech/sendSession", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	err := client.SubmitTranscript(context.Background(), "test-token", "S123", "patient reports cough")
	require.NoError(t, err)

	assert.Equal(t, "patient reports cough", body["session"])
	assert.Equal(t, "S123", body["accessId"])
}

func TestClient_PollSummary_NotReady(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/speech/getSession", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{"isValid": false, "result": []string{}})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	// Not ready is a success, never an error
	poll, err := client.PollSummary(context.Background(), "test-token", "S123")
	require.NoError(t, err)
	assert.False(t, poll.Ready)
	assert.Empty(t, poll.Lines)
}

func TestClient_PollSummary_Ready(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"isValid": true,
			"result":  []string{"Likely viral bronchitis", "Rest and fluids"},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	poll, err := client.PollSummary(context.Background(), "test-token", "S123")
	require.NoError(t, err)
	assert.True(t, poll.Ready)
	assert.Equal(t, []string{"Likely viral bronchitis", "Rest and fluids"}, poll.Lines)
}

func TestClient_SubmitPrescriptionText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/speech/getPrescriptionSummary", r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Amoxicillin 500mg every 8 hours", body["prescription"])
		assert.Equal(t, "adult, no known allergies", body["patientInfo"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"explanations": []map[string]interface{}{
				{"name": "Amoxicillin", "explanation": []string{"Antibiotic for bacterial infections"}},
			},
			"reminders": []map[string]interface{}{
				{"drugName": "Amoxicillin", "dosis": "500mg", "everyXHours": 8},
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	extraction, err := client.SubmitPrescriptionText(context.Background(), "test-token",
		"Amoxicillin 500mg every 8 hours", "adult, no known allergies")
	require.NoError(t, err)

	require.Len(t, extraction.Explanations, 1)
	assert.Equal(t, "Amoxicillin", extraction.Explanations[0].DrugGroupName)
	require.Len(t, extraction.Reminders, 1)
	assert.Equal(t, 8, extraction.Reminders[0].EveryXHours)
}

func TestClient_StatusMapping(t *testing.T) {
	cases := []struct {
		name       string
		statusCode int
		errorType  types.ErrorType
	}{
		{"unauthorized", http.StatusUnauthorized, types.ErrorTypeUnauthorized},
		{"forbidden", http.StatusForbidden, types.ErrorTypeUnauthorized},
		{"bad request", http.StatusBadRequest, types.ErrorTypeValidation},
		{"unprocessable", http.StatusUnprocessableEntity, types.ErrorTypeValidation},
		{"server error", http.StatusInternalServerError, types.ErrorTypeServer},
		{"bad gateway", http.StatusBadGateway, types.ErrorTypeServer},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.statusCode)
			}))
			defer server.Close()

			client := newTestClient(server.URL)

			err := client.SubmitTranscript(context.Background(), "test-token", "S123", "text")
			require.Error(t, err)
			assert.True(t, types.IsType(err, tc.errorType), "expected %s error", tc.errorType)
		})
	}
}

func TestClient_TransportFailureIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	client := newTestClient(server.URL)

	err := client.SubmitTranscript(context.Background(), "test-token", "S123", "text")
	require.Error(t, err)
	assert.True(t, types.IsType(err, types.ErrorTypeNetwork))
}
