// Package server contains the small shared pieces of the HTTP layer:
// JSON payload types and a route table bound onto a goji mux.
package server

import (
	"encoding/json"
	"net/http"

	"goji.io"
)

// FloatT is a struct with a single float64 field, used for json I/O.
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single int field, used for json I/O.
type IntT struct {
	Int int `json:"int"`
}

// BoolT is a struct with a single bool field, used for json I/O.
type BoolT struct {
	Bool bool `json:"bool"`
}

// StrT is a struct with a single string field, used for json I/O.
type StrT struct {
	Str string `json:"str"`
}

// EncodeAndRespond writes v to w as JSON with an OK status.
func EncodeAndRespond(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// RouteTable maps goji patterns to http handlers.
type RouteTable map[goji.Pattern]http.HandlerFunc

// Bind attaches every route in the table to the mux.
func (rt RouteTable) Bind(mux *goji.Mux) {
	for ptrn, handler := range rt {
		mux.HandleFunc(ptrn, handler)
	}
}
