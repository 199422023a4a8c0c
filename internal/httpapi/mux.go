package httpapi

import (
	"net/http"
)

// NewMux returns the root mux with /healthz registered. mqtt may be nil.
func NewMux(db Pinger, mqtt ConnectionState) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db, mqtt)
	return mux
}
