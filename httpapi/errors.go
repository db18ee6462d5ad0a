package httpapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"escrowflow/deal"
	"escrowflow/dispute"
	"escrowflow/identity"
	"escrowflow/notify"
	"escrowflow/obs"
)

// writeError maps a domain error to an HTTP status. Unrecognized errors are
// logged and reported as 500 without leaking internals.
func writeError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	msg := "internal error"

	switch {
	case errors.Is(err, identity.ErrUserNotFound),
		errors.Is(err, deal.ErrNotFound),
		errors.Is(err, dispute.ErrNotFound),
		errors.Is(err, notify.ErrNotFound):
		status, msg = http.StatusNotFound, err.Error()

	case errors.Is(err, identity.ErrInvalidCredentials):
		status, msg = http.StatusUnauthorized, err.Error()

	case errors.Is(err, deal.ErrNotPayer),
		errors.Is(err, deal.ErrNotProvider),
		errors.Is(err, deal.ErrNotParticipant),
		errors.Is(err, deal.ErrInviteeMismatch),
		errors.Is(err, dispute.ErrAdminRequired):
		status, msg = http.StatusForbidden, err.Error()

	case errors.Is(err, identity.ErrDuplicateEmail),
		errors.Is(err, identity.ErrDuplicateUsername),
		errors.Is(err, deal.ErrInvalidState),
		errors.Is(err, deal.ErrAlreadyPaired),
		errors.Is(err, deal.ErrCannotCancelFunded),
		errors.Is(err, dispute.ErrAlreadyExists),
		errors.Is(err, dispute.ErrAlreadyResolved):
		status, msg = http.StatusConflict, err.Error()

	case errors.Is(err, identity.ErrWeakPassword),
		errors.Is(err, identity.ErrMissingFields),
		errors.Is(err, deal.ErrValidation),
		errors.Is(err, deal.ErrInvalidInviteCode),
		errors.Is(err, deal.ErrSelfJoin),
		errors.Is(err, dispute.ErrReasonRequired),
		errors.Is(err, dispute.ErrEmptyMessage):
		status, msg = http.StatusBadRequest, err.Error()
	}

	if status == http.StatusInternalServerError {
		obs.Event("http_internal_error", map[string]any{
			"request_id": c.Get(ctxRequestID),
			"error":      err.Error(),
		})
	}
	return c.JSON(status, echo.Map{"error": msg})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
}
