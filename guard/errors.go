package guard

import "net/http"

// forbiddenBody is the single response for every CSRF failure.
const forbiddenBody = `<div class="alert alert-danger" role="alert">
    <div class="alert-title"><strong>Forbidden</strong></div>
    <div class="alert-body">The request could not be verified.</div>
</div>
`

func writeForbidden(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusForbidden)
	w.Write([]byte(forbiddenBody))
}
