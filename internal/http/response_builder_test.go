package http

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSONResponseBuilder_Basic(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Body(map[string]int{"n": 1}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", w.Code, http.StatusCreated)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if strings.TrimSpace(w.Body.String()) != `{"n":1}` {
		t.Errorf("Body = %q", w.Body.String())
	}
}

func TestJSONResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Header("X-Test", "1").Write(w)

	if w.Code != http.StatusNoContent {
		t.Errorf("Status code = %d", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("expected empty body, got %q", w.Body.String())
	}
	if w.Header().Get("X-Test") != "1" {
		t.Error("custom header not set")
	}
}

func TestJSONResponseBuilder_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Body(math.Inf(1)).Write(w)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Status code = %d, want 500", w.Code)
	}
}

func TestErrorResponses(t *testing.T) {
	tests := []struct {
		name      string
		builder   *JSONResponseBuilder
		status    int
		code      string
		retryable bool
	}{
		{"bad request", BadRequestError("x"), http.StatusBadRequest, CodeBadRequest, false},
		{"invalid donation", UnprocessableEntityError("x"), http.StatusUnprocessableEntity, CodeInvalidDonation, false},
		{"conflict", ConflictError("x"), http.StatusConflict, CodeAlreadyVoted, false},
		{"not found", NotFoundError(CodeProposalNotFound, "x"), http.StatusNotFound, CodeProposalNotFound, false},
		{"internal", InternalServerError("x"), http.StatusInternalServerError, CodeInternal, false},
		{"store", StoreUnavailableError("x", map[string]int{"a": 1}), http.StatusServiceUnavailable, CodeStoreUnavailable, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.builder.Write(w)

			if w.Code != tt.status {
				t.Errorf("Status code = %d, want %d", w.Code, tt.status)
			}
			var body ErrorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Code != tt.code || body.Error != "x" || body.Retryable != tt.retryable {
				t.Errorf("unexpected body %+v", body)
			}
			if tt.retryable && body.State == nil {
				t.Error("expected state in retryable error")
			}
		})
	}
}

func TestMethodNotAllowedError(t *testing.T) {
	w := httptest.NewRecorder()
	MethodNotAllowedError("GET, POST").Write(w)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Status code = %d", w.Code)
	}
	if w.Header().Get("Allow") != "GET, POST" {
		t.Errorf("Allow = %q", w.Header().Get("Allow"))
	}
}
