package httputil

import (
	"context"
	"errors"
	"net/http"

	"github.com/bissquit/hotel-admin/internal/pkg/ctxlog"
)

// ErrorMapping defines how a domain error maps to a failure envelope.
type ErrorMapping struct {
	Error   error
	Status  int
	Message string // if empty, uses err.Error()
}

// HandleError writes the envelope of the first mapping matching err.
// Unmatched errors are logged and reported as 500 without detail.
func HandleError(ctx context.Context, w http.ResponseWriter, err error, mappings []ErrorMapping) {
	for _, m := range mappings {
		if errors.Is(err, m.Error) {
			msg := m.Message
			if msg == "" {
				msg = err.Error()
			}
			Error(w, m.Status, msg)
			return
		}
	}
	ctxlog.FromContext(ctx).Error("internal error", "error", err)
	Error(w, http.StatusInternalServerError, "internal error")
}
