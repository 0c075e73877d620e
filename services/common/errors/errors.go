package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Error is an application error that knows which HTTP status it maps to.
// Message is safe to show to the user; Err carries the underlying cause and is
// never serialized.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on Code and Message so sentinel values compare equal to wrapped copies.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// Wrap returns a copy of e carrying err as its cause. Sentinels are never mutated.
func (e *Error) Wrap(err error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Err: err}
}

func New(code int, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func BadRequest(message string) *Error      { return New(http.StatusBadRequest, message, nil) }
func Unauthorized(message string) *Error    { return New(http.StatusUnauthorized, message, nil) }
func Forbidden(message string) *Error       { return New(http.StatusForbidden, message, nil) }
func NotFound(message string) *Error        { return New(http.StatusNotFound, message, nil) }
func Conflict(message string) *Error        { return New(http.StatusConflict, message, nil) }
func PaymentRequired(message string) *Error { return New(http.StatusPaymentRequired, message, nil) }

// Internal hides the cause behind a generic message.
func Internal(err error) *Error {
	return New(http.StatusInternalServerError, ErrInternalServer.Message, err)
}

var (
	ErrBadRequest         = New(http.StatusBadRequest, "Bad request", nil)
	ErrUnauthorized       = New(http.StatusUnauthorized, "Unauthorized", nil)
	ErrForbidden          = New(http.StatusForbidden, "Forbidden", nil)
	ErrNotFound           = New(http.StatusNotFound, "Not found", nil)
	ErrInternalServer     = New(http.StatusInternalServerError, "Something went wrong. Please try again.", nil)
	ErrServiceUnavailable = New(http.StatusServiceUnavailable, "Service unavailable", nil)

	ErrInvalidCredentials = New(http.StatusUnauthorized, "Invalid email or password", nil)
	ErrInvalidToken       = New(http.StatusUnauthorized, "Invalid or expired token", nil)
	ErrEmailInUse         = New(http.StatusConflict, "Email already in use", nil)

	ErrEmptyCart       = New(http.StatusBadRequest, "Your cart is empty", nil)
	ErrPaymentRequired = New(http.StatusPaymentRequired, "Payment has not been confirmed", nil)
	ErrInvalidStatus   = New(http.StatusBadRequest, "Invalid status transition", nil)
)

// From converts any error into an *Error. Unknown errors become a 500 with the
// generic message.
func From(err error) *Error {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return Internal(err)
}

// Respond writes err as {"error": message} with the mapped status and aborts.
func Respond(c *gin.Context, err error) {
	appErr := From(err)
	c.AbortWithStatusJSON(appErr.Code, gin.H{"error": appErr.Message})
}

// ErrorMiddleware renders the last error attached with c.Error when the handler
// did not write a response itself.
func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		Respond(c, c.Errors.Last().Err)
	}
}
