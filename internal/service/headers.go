package service

import (
	"net/http"
)

// CORS policy shared by relayed, locally generated and preflight responses.
const (
	CORSAllowOrigin  = "*"
	CORSAllowMethods = "GET, POST, OPTIONS"
	CORSAllowHeaders = "Content-Type, Authorization"
	CORSMaxAge       = "86400"
)

const defaultContentType = "application/json"

// strippedRequestHeaders are recomputed by the outbound transport.
var strippedRequestHeaders = map[string]bool{
	"Host":           true,
	"Content-Length": true,
}

// strippedResponseHeaders are replaced by the proxy: the CORS origin is
// re-added and the body is re-framed.
var strippedResponseHeaders = map[string]bool{
	"Access-Control-Allow-Origin": true,
	"Content-Length":              true,
}

// FilterRequestHeaders returns a copy of src without Host and Content-Length.
// Everything else, custom and Authorization headers included, is kept with
// all of its values.
func FilterRequestHeaders(src http.Header) http.Header {
	return without(src, strippedRequestHeaders)
}

// FilterResponseHeaders returns a copy of src without
// Access-Control-Allow-Origin and Content-Length.
func FilterResponseHeaders(src http.Header) http.Header {
	return without(src, strippedResponseHeaders)
}

func without(src http.Header, drop map[string]bool) http.Header {
	dst := make(http.Header, len(src))
	for key, vals := range src {
		if drop[http.CanonicalHeaderKey(key)] {
			continue
		}
		dst[key] = append([]string(nil), vals...)
	}
	return dst
}

// DefaultContentType sets Content-Type to application/json when a POST
// carries a body and no content type was supplied.
func DefaultContentType(h http.Header, method string, hasBody bool) {
	if method != http.MethodPost || !hasBody {
		return
	}
	if !hasHeaderFold(h, "Content-Type") {
		h.Set("Content-Type", defaultContentType)
	}
}

// hasHeaderFold reports whether name is present, matching keys
// case-insensitively so non-canonical map keys are found too.
func hasHeaderFold(h http.Header, name string) bool {
	canonical := http.CanonicalHeaderKey(name)
	for key := range h {
		if http.CanonicalHeaderKey(key) == canonical {
			return true
		}
	}
	return false
}

// ApplyCORS sets the allow-origin header every response carries.
func ApplyCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", CORSAllowOrigin)
}

// ApplyPreflight sets the full set of headers answered to a preflight request.
func ApplyPreflight(h http.Header) {
	ApplyCORS(h)
	h.Set("Access-Control-Allow-Methods", CORSAllowMethods)
	h.Set("Access-Control-Allow-Headers", CORSAllowHeaders)
	h.Set("Access-Control-Max-Age", CORSMaxAge)
}
