package httpserver

import (
	"context"
	"errors"
	"net/http"

	"github.com/ndajr/urlshortener-kv/internal/core"
	"github.com/ndajr/urlshortener-kv/internal/kvstore"
)

const (
	msgWrongMethod   = "GET method expected"
	msgMissingURL    = "No url provided in user request"
	msgMissingKey    = "No key provided in user request"
	msgCorruptRecord = "Stored record is invalid"
)

// statusFor maps a shortener error to a response status and a body that
// carries no internal detail.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, core.ErrCorruptRecord):
		return http.StatusInternalServerError, msgCorruptRecord
	case errors.Is(err, core.ErrAliasTaken):
		return http.StatusForbidden, core.ErrAliasTaken.Error()
	case errors.Is(err, core.ErrGeneratedKeyExists):
		return http.StatusInternalServerError, core.ErrGeneratedKeyExists.Error()
	case errors.Is(err, core.ErrFieldTooLarge):
		return http.StatusBadRequest, core.ErrFieldTooLarge.Error()
	case errors.Is(err, kvstore.ErrNotFound):
		return http.StatusNotFound, kvstore.ErrNotFound.Error()
	case errors.Is(err, kvstore.ErrUnauthorized):
		return http.StatusUnauthorized, kvstore.ErrUnauthorized.Error()
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, http.StatusText(http.StatusGatewayTimeout)
	case errors.Is(err, kvstore.ErrUnknown):
		return http.StatusBadRequest, kvstore.ErrUnknown.Error()
	default:
		return http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError)
	}
}

// outcomeFor buckets a shorten error for the shorten_total metric.
func outcomeFor(status int) string {
	if status >= http.StatusInternalServerError {
		return OutcomeFailed
	}
	return OutcomeRejected
}
