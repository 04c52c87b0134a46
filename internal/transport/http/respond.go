// internal/transport/http/respond.go
package httptransport

import (
	"encoding/json"
	"net/http"

	"checkin-service/internal/common/errors"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps an error to its status and a {"error": message} body.
// Messages of unclassified errors are not exposed.
func writeError(w http.ResponseWriter, err error) {
	stdErr := errors.Normalize(err)
	msg := stdErr.Message
	if stdErr.Code == errors.ErrCodeInternal {
		msg = "internal error"
	}
	writeJSON(w, errors.HTTPStatus(stdErr), errorBody{Error: msg})
}
