package core

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"tubepost/internal/types"
)

// maxRequestBodySize is the maximum allowed size of a request body (1 MB).
const maxRequestBodySize = 1 << 20

// Envelope status values. The dashboard client branches on these.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// APIErrorResponse is the envelope for all error responses.
type APIErrorResponse struct {
	Status    string         `json:"status"`
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
}

// JSON writes a JSON response with the given status code and data.
// If marshalling fails, it falls back to a 500 error response.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fallback := APIErrorResponse{
			Status:    StatusError,
			Code:      string(types.ErrCodeInternalUnexpected),
			Message:   "failed to marshal response",
			RequestID: types.GetRequestID(r.Context()),
		}
		_ = json.NewEncoder(w).Encode(fallback)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Success writes a 200 envelope with status "success" merged into fields.
func Success(w http.ResponseWriter, r *http.Request, fields map[string]any) {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["status"] = StatusSuccess
	JSON(w, r, http.StatusOK, body)
}

// Error writes an error response. AppErrors keep their code, message and
// details; any other error becomes a 500 internal_unexpected_error without
// leaking the underlying message.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	JSON(w, r, ErrorStatus(err), ErrorBody(r, err))
}

// ErrorStatus returns the HTTP status that Error would write for err.
func ErrorStatus(err error) int {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus()
	}
	return http.StatusInternalServerError
}

// ErrorBody builds the error envelope for err.
func ErrorBody(r *http.Request, err error) APIErrorResponse {
	requestID := types.GetRequestID(r.Context())

	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return APIErrorResponse{
			Status:    StatusError,
			Code:      string(appErr.Code),
			Message:   appErr.Message,
			Details:   appErr.Details,
			RequestID: requestID,
		}
	}
	return APIErrorResponse{
		Status:    StatusError,
		Code:      string(types.ErrCodeInternalUnexpected),
		Message:   "an unexpected error occurred",
		RequestID: requestID,
	}
}

// DecodeJSON reads the request body into dst, enforcing a 1 MB limit and
// rejecting unknown fields, empty bodies and trailing values.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		return mapDecodeError(err)
	}

	if dec.More() {
		return types.NewAppError(
			types.ErrCodeValidationInvalidJSON,
			"request body must contain a single JSON object",
			nil,
		)
	}

	return nil
}

// DecodeBody accepts either a JSON body or a form-encoded body. Form values
// are mapped onto dst through its json tags.
func DecodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	ct := r.Header.Get("Content-Type")
	if !strings.HasPrefix(ct, "application/x-www-form-urlencoded") && !strings.HasPrefix(ct, "multipart/form-data") {
		return DecodeJSON(w, r, dst)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var err error
	if strings.HasPrefix(ct, "multipart/form-data") {
		// ParseMultipartForm also copies the text parts into PostForm.
		err = r.ParseMultipartForm(maxRequestBodySize)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return types.NewAppError(types.ErrCodeValidationInvalidJSON, "malformed form body", err)
	}
	flat := make(map[string]string, len(r.PostForm))
	for k := range r.PostForm {
		flat[k] = r.PostForm.Get(k)
	}
	raw, err := json.Marshal(flat)
	if err != nil {
		return types.NewAppError(types.ErrCodeValidationInvalidJSON, "malformed form body", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return mapDecodeError(err)
	}
	return nil
}

// mapDecodeError translates a json.Decoder error into a structured AppError.
func mapDecodeError(err error) *types.AppError {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return types.NewAppError(
			types.ErrCodeValidationInvalidJSON,
			"request body must not exceed 1MB",
			err,
		)
	}

	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return types.NewAppError(
			types.ErrCodeValidationInvalidJSON,
			"malformed JSON in request body",
			err,
		)
	}

	var unmarshalTypeErr *json.UnmarshalTypeError
	if errors.As(err, &unmarshalTypeErr) {
		return types.NewAppErrorWithDetails(
			types.ErrCodeValidationInvalidJSON,
			"invalid value for field",
			err,
			map[string]any{
				"field":    unmarshalTypeErr.Field,
				"expected": unmarshalTypeErr.Type.String(),
			},
		)
	}

	if strings.HasPrefix(err.Error(), "json: unknown field") {
		return types.NewAppError(
			types.ErrCodeValidationInvalidJSON,
			"unknown field in request body: "+strings.TrimPrefix(err.Error(), "json: unknown field "),
			err,
		)
	}

	if errors.Is(err, io.EOF) {
		return types.NewAppError(
			types.ErrCodeValidationInvalidJSON,
			"request body must not be empty",
			err,
		)
	}

	return types.NewAppError(
		types.ErrCodeValidationInvalidJSON,
		"invalid JSON in request body",
		err,
	)
}
