package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tubepost/internal/types"
)

func TestError_AppError(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/send", nil)
	req = req.WithContext(types.WithRequestID(req.Context(), "req-42"))
	rec := httptest.NewRecorder()

	Error(rec, req, types.NewAppErrorWithDetails(
		types.ErrCodeLimitDailyExceeded, "Daily limit reached", nil,
		map[string]any{"daily_limit": 10},
	))

	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	var body APIErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, StatusError, body.Status)
	assert.Equal(t, "limit_daily_exceeded", body.Code)
	assert.Equal(t, "Daily limit reached", body.Message)
	assert.Equal(t, "req-42", body.RequestID)
	assert.EqualValues(t, 10, body.Details["daily_limit"])
}

func TestError_GenericErrorDoesNotLeak(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("pq: password authentication failed"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password")
	assert.Contains(t, rec.Body.String(), string(types.ErrCodeInternalUnexpected))
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		VideoID string `json:"video_id"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"video_id":"abc"}`, false},
		{"empty", ``, true},
		{"syntax", `{"video_id":`, true},
		{"unknown field", `{"video_id":"a","x":1}`, true},
		{"wrong type", `{"video_id":5}`, true},
		{"trailing value", `{"video_id":"a"}{"video_id":"b"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst payload
			err := DecodeJSON(httptest.NewRecorder(), req, &dst)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "abc", dst.VideoID)
				return
			}
			require.Error(t, err)
			assert.True(t, types.HasCode(err, types.ErrCodeValidationInvalidJSON))
		})
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	big := `{"video_id":"` + strings.Repeat("a", maxRequestBodySize) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
	var dst map[string]string
	err := DecodeJSON(httptest.NewRecorder(), req, &dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1MB")
}

func TestDecodeBody_Form(t *testing.T) {
	type payload struct {
		VideoID string `json:"video_id"`
		Message string `json:"message"`
		Type    string `json:"type"`
	}
	req := httptest.NewRequest(http.MethodPost, "/send", strings.NewReader("video_id=dQw4w9WgXcQ&message=oi&type=live"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var dst payload
	require.NoError(t, DecodeBody(httptest.NewRecorder(), req, &dst))
	assert.Equal(t, payload{VideoID: "dQw4w9WgXcQ", Message: "oi", Type: "live"}, dst)
}

func TestDecodeBody_Multipart(t *testing.T) {
	type payload struct {
		VideoID string `json:"video_id"`
		Message string `json:"message"`
		Type    string `json:"type"`
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("video_id", "dQw4w9WgXcQ"))
	require.NoError(t, mw.WriteField("message", " oi tudo bem "))
	require.NoError(t, mw.WriteField("type", "comment"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/send", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var dst payload
	require.NoError(t, DecodeBody(httptest.NewRecorder(), req, &dst))
	assert.Equal(t, payload{VideoID: "dQw4w9WgXcQ", Message: " oi tudo bem ", Type: "comment"}, dst)
}
