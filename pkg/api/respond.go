package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/hyperdxio/switchboard/pkg/apperr"
)

// errorBody is the uniform error envelope
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    apperr.Kind `json:"kind"`
	Message string      `json:"message"`
}

// dataBody wraps list and single-record responses
type dataBody struct {
	Data interface{} `json:"data"`
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondData(w http.ResponseWriter, status int, v interface{}) {
	respondJSON(w, status, dataBody{Data: v})
}

func respondError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	respondJSON(w, apperr.HTTPStatus(kind), errorBody{
		Error: errorDetail{
			Kind:    kind,
			Message: apperr.Message(err),
		},
	})
}

// decodeJSON reads an optional JSON body into v. An empty body is
// fine; several endpoints take no arguments.
func decodeJSON(r *http.Request, v interface{}) error {
	err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return apperr.New(apperr.KindInvalid, "malformed request body: %v", err)
}
