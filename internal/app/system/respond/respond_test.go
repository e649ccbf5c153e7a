package respond

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/classhub/internal/app/system/apperr"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestError_MapsKind(t *testing.T) {
	tests := []struct {
		err      error
		wantCode int
		wantMsg  string
	}{
		{apperr.NotFoundf("lecture not found"), http.StatusNotFound, "lecture not found"},
		{apperr.Conflictf("already present"), http.StatusConflict, "already present"},
		{apperr.New(apperr.RateLimited, "slow down"), http.StatusTooManyRequests, "slow down"},
		{errors.New("mongo: socket closed"), http.StatusInternalServerError, "internal error, please retry"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/x", nil)
		Error(rec, req, zap.NewNop(), tt.err)

		if rec.Code != tt.wantCode {
			t.Errorf("status: got %d, want %d", rec.Code, tt.wantCode)
		}
		var body ErrorBody
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Error != tt.wantMsg {
			t.Errorf("message: got %q, want %q", body.Error, tt.wantMsg)
		}
	}
}

func TestError_RateLimitedSetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, httptest.NewRequest("POST", "/x", nil), zap.NewNop(), apperr.New(apperr.RateLimited, "slow down"))
	if got := rec.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Retry-After: got %q, want 60", got)
	}
}

func TestDecode(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"name":"x"}`))
	if err := Decode(req, &dst); err != nil || dst.Name != "x" {
		t.Fatalf("Decode: %v %+v", err, dst)
	}

	req = httptest.NewRequest("POST", "/", strings.NewReader(`{"nope":1}`))
	if err := Decode(req, &dst); !apperr.Is(err, apperr.Validation) {
		t.Errorf("unknown field: got %v, want validation", err)
	}
}

func TestPathID(t *testing.T) {
	id := primitive.NewObjectID()
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id.Hex())
	req := httptest.NewRequest("GET", "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	got, err := PathID(req, "id")
	if err != nil || got != id {
		t.Fatalf("PathID: got %v %v, want %v", got, err, id)
	}
	if _, err := PathID(req, "lectureID"); !apperr.Is(err, apperr.Validation) {
		t.Errorf("missing param: got %v, want validation", err)
	}
}

func TestIDs(t *testing.T) {
	id := primitive.NewObjectID()
	got, err := IDs([]string{id.Hex()})
	if err != nil || len(got) != 1 || got[0] != id {
		t.Fatalf("IDs: %v %v", got, err)
	}
	if _, err := IDs([]string{"nope"}); !apperr.Is(err, apperr.Validation) {
		t.Errorf("bad id: got %v, want validation", err)
	}
}
