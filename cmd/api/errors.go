package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"salonbook/apperr"
	"salonbook/appointment"
	"salonbook/auth"
	"salonbook/docstore"
	"salonbook/identity"
	"salonbook/roster"
	"salonbook/salon"
)

var errForbidden = errors.New("api: not allowed")

// statusFor maps workflow errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, auth.ErrWeakPassword):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidSession):
		return http.StatusUnauthorized
	case errors.Is(err, errForbidden):
		return http.StatusForbidden
	case errors.Is(err, salon.ErrNotFound),
		errors.Is(err, roster.ErrStylistNotFound),
		errors.Is(err, appointment.ErrNotFound),
		errors.Is(err, identity.ErrProfileNotFound),
		errors.Is(err, docstore.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, identity.ErrDuplicateEmail),
		errors.Is(err, auth.ErrEmailInUse),
		errors.Is(err, salon.ErrDuplicateBusinessID),
		errors.Is(err, salon.ErrCredentialConflict),
		errors.Is(err, docstore.ErrTransactionConflict),
		errors.Is(err, appointment.ErrClosed):
		return http.StatusConflict
	case errors.Is(err, docstore.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		s.log.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		msg = http.StatusText(status)
	}
	body := gin.H{"error": msg}
	var vErr *apperr.ValidationError
	if errors.As(err, &vErr) {
		body["field"] = vErr.Field
	}
	c.AbortWithStatusJSON(status, body)
}
