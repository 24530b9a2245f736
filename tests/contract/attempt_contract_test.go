package contract_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAttemptDetailContract(t *testing.T) {
	schema := compileSchema(t, "attempt_detail.schema.json")
	app := setupContractApp(t)

	raw, err := json.Marshal(contractEvents)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/ingest/attempts", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary struct {
		Data struct {
			Details []struct {
				AttemptID string `json:"attempt_id"`
				Status    string `json:"status"`
			} `json:"details"`
		} `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	resp.Body.Close()

	for _, detail := range summary.Data.Details {
		if detail.AttemptID == "" {
			continue
		}

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/attempts/"+detail.AttemptID, nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		payload := readPayload(t, resp)
		require.NoError(t, schema.Validate(payload), detail.Status)

		thread := payload.(map[string]interface{})["data"].(map[string]interface{})["duplicate_thread"].([]interface{})
		if detail.Status == "DEDUPED" {
			require.Len(t, thread, 2)
		}
	}

	flagBody := bytes.NewBufferString(`{"reason":"answers match a neighbour"}`)
	req = httptest.NewRequest(http.MethodPost, "/api/attempts/"+summary.Data.Details[0].AttemptID+"/flag", flagBody)
	req.Header.Set("Content-Type", "application/json")
	resp, err = app.Test(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/attempts/"+summary.Data.Details[0].AttemptID, nil))
	require.NoError(t, err)
	payload := readPayload(t, resp)
	require.NoError(t, schema.Validate(payload))
	data := payload.(map[string]interface{})["data"].(map[string]interface{})
	require.Equal(t, "FLAGGED", data["status"])
	require.Len(t, data["flags"].([]interface{}), 1)
}
