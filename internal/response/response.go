package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/homestay-labs/service-availability/internal/domain"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error       string      `json:"error"`
	Code        string      `json:"code,omitempty"`
	ConflictIDs []uuid.UUID `json:"conflicting_booking_ids,omitempty"`
}

// statusForCode maps domain error codes to HTTP statuses.
var statusForCode = map[domain.Code]int{
	domain.CodeValidation:         http.StatusBadRequest,
	domain.CodeInvalidRange:       http.StatusBadRequest,
	domain.CodePastDate:           http.StatusUnprocessableEntity,
	domain.CodeSelfBooking:        http.StatusUnprocessableEntity,
	domain.CodeInvalidPrice:       http.StatusUnprocessableEntity,
	domain.CodeSlotUnavailable:    http.StatusConflict,
	domain.CodeInvalidTransition:  http.StatusConflict,
	domain.CodeConflict:           http.StatusConflict,
	domain.CodeNotFound:           http.StatusNotFound,
	domain.CodeForbidden:          http.StatusForbidden,
	domain.CodeTimeout:            http.StatusServiceUnavailable,
	domain.CodeInvariantViolation: http.StatusInternalServerError,
}

// Error maps a service error to its HTTP status. Domain errors keep their
// code and conflict ids in the body; anything else is an opaque 500.
func Error(c *gin.Context, err error) {
	var de *domain.Error
	if errors.As(err, &de) {
		status, ok := statusForCode[de.Code]
		if !ok {
			status = http.StatusInternalServerError
		}
		c.JSON(status, ErrorBody{
			Error:       de.Message,
			Code:        string(de.Code),
			ConflictIDs: de.ConflictIDs,
		})
		return
	}

	c.JSON(http.StatusInternalServerError, ErrorBody{Error: "internal server error"})
}

// BadRequest writes a 400 with the given message.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorBody{Error: message})
}

// Unauthorized writes a 401 with the given message.
func Unauthorized(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, ErrorBody{Error: message})
}

// Forbidden writes a 403 with the given message.
func Forbidden(c *gin.Context, message string) {
	c.JSON(http.StatusForbidden, ErrorBody{Error: message})
}

// Success writes a 200 with the payload.
func Success(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

// Created writes a 201 with the payload.
func Created(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusCreated, payload)
}

// Paginated writes a 200 with items and paging metadata.
func Paginated(c *gin.Context, items interface{}, total int64, page, limit int) {
	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}
