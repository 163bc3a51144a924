// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/hotel-pms/hotel-pms/internal/shared"
)

var kindStatus = map[shared.Kind]struct {
	status int
	title  string
}{
	shared.KindValidation: {http.StatusUnprocessableEntity, "Validation Failed"},
	shared.KindState:      {http.StatusConflict, "Invalid State"},
	shared.KindInventory:  {http.StatusConflict, "Insufficient Stock"},
	shared.KindPayment:    {http.StatusConflict, "Payment Rejected"},
	shared.KindNotFound:   {http.StatusNotFound, "Not Found"},
	shared.KindConflict:   {http.StatusConflict, "Conflict"},
	shared.KindForbidden:  {http.StatusForbidden, "Forbidden"},
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var de *shared.Error
	if errors.As(err, &de) {
		mapped, ok := kindStatus[de.Kind]
		if !ok {
			Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
		if de.Kind == shared.KindConflict {
			w.Header().Set("Retry-After", "1")
		}
		writeProblem(w, ProblemDetail{
			Type:     "about:blank",
			Title:    mapped.title,
			Status:   mapped.status,
			Detail:   de.Error(),
			Kind:     string(de.Kind),
			Entity:   de.Entity,
			EntityID: de.EntityID,
		})
		return
	}
	switch {
	case errors.Is(err, shared.ErrIdempotencyReplay):
		Problem(w, http.StatusConflict, "Already Processed", err.Error())
	case errors.Is(err, shared.ErrUnauthenticated):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
