/*
Package req provides helper functions for HTTP request parsing and data binding.

It encapsulates the logic for parsing JSON request bodies with strict validation
(unknown fields and trailing content are rejected), mapping parse failures onto
the application error taxonomy.
*/
package req

import (
	"encoding/json"
	"net/http"
	"strings"

	"lklobby/internal/pkg/errs"
)

// MaxBodyBytes defines the maximum allowed size (64 KB) for a JSON request body.
// Presence and chat payloads are small; anything larger is rejected outright.
const MaxBodyBytes int64 = 64 << 10

// BindJSON attempts to bind the JSON data from the HTTP request body to the destination struct dst.
func BindJSON(w http.ResponseWriter, r *http.Request, dst any) *errs.CustomError {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errs.NewError(errs.ErrUnsupportedMediaType)
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return errs.NewError(errs.ErrInvalidJSONFormat)
	}

	if decoder.More() {
		return errs.NewError(errs.ErrExtraContentInBody)
	}

	return nil
}
