package middleware

import (
	"mime"
	"net/http"

	dErrors "person-registry/pkg/domain-errors"
	"person-registry/pkg/platform/httputil"
)

// ContentTypeJSON rejects bodied requests whose Content-Type is not
// application/json with 415. Parameters such as charset are allowed.
func ContentTypeJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch:
			mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
			if err != nil || mediaType != "application/json" {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnsupportedMediaType,
					"Unsupported Media Type. Only application/json is supported"))
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
