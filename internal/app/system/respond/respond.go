// internal/app/system/respond/respond.go

// Package respond writes JSON responses and maps service failures to status
// codes.
package respond

import (
	"encoding/json"
	"net/http"

	"github.com/dalemusser/classhub/internal/app/system/apperr"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ErrorBody is the JSON shape of every failure.
type ErrorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// JSON writes v with status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes v with 200.
func OK(w http.ResponseWriter, v any) { JSON(w, http.StatusOK, v) }

// Created writes v with 201.
func Created(w http.ResponseWriter, v any) { JSON(w, http.StatusCreated, v) }

// Message writes {"message": msg} with 200.
func Message(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusOK, map[string]string{"message": msg})
}

// Error writes err as an ErrorBody. Server faults are logged with their cause
// and reported to the caller with a generic message.
func Error(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.ServerFault && log != nil {
		log.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	}
	if kind == apperr.RateLimited {
		w.Header().Set("Retry-After", "60")
	}
	JSON(w, apperr.Status(kind), ErrorBody{Error: apperr.Message(err), Kind: string(kind)})
}

// Fail writes a failure of kind k with msg.
func Fail(w http.ResponseWriter, k apperr.Kind, msg string) {
	JSON(w, apperr.Status(k), ErrorBody{Error: msg, Kind: string(k)})
}

// Decode reads a JSON body into dst. Unknown fields are rejected.
func Decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.Validationf("malformed JSON body")
	}
	return nil
}

// PathID parses the chi URL parameter name as an ObjectID.
func PathID(r *http.Request, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, name))
	if err != nil {
		return primitive.NilObjectID, apperr.Validationf("bad %s", name)
	}
	return id, nil
}

// IDs parses hex ids from a request body.
func IDs(hex []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(hex))
	for _, h := range hex {
		id, err := primitive.ObjectIDFromHex(h)
		if err != nil {
			return nil, apperr.Validationf("bad id %q", h)
		}
		out = append(out, id)
	}
	return out, nil
}

// TooManyRequests writes 429 with a Retry-After of one minute.
func TooManyRequests(w http.ResponseWriter, msg string) {
	w.Header().Set("Retry-After", "60")
	JSON(w, http.StatusTooManyRequests, ErrorBody{Error: msg, Kind: string(apperr.RateLimited)})
}
