package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"hostelmess/internal/account"
	"hostelmess/internal/attendance"
	"hostelmess/internal/auth"
	"hostelmess/internal/calendar"
	"hostelmess/internal/issue"
	"hostelmess/internal/mess"
	"hostelmess/internal/student"
)

var statusByErr = []struct {
	err  error
	code int
}{
	{calendar.ErrInvalidDate, http.StatusBadRequest},
	{calendar.ErrInvalidDateRange, http.StatusBadRequest},
	{mess.ErrMissingSubscriptionWindow, http.StatusBadRequest},
	{mess.ErrMissingLeaveDates, http.StatusBadRequest},
	{mess.ErrUnknownStatus, http.StatusBadRequest},
	{mess.ErrUnknownMeal, http.StatusBadRequest},
	{mess.ErrUnknownFilter, http.StatusBadRequest},
	{mess.ErrNameRequired, http.StatusBadRequest},
	{auth.ErrPasswordTooShort, http.StatusBadRequest},
	{issue.ErrBadStatus, http.StatusBadRequest},
	{issue.ErrFieldsRequired, http.StatusBadRequest},
	{student.ErrEmailRequired, http.StatusBadRequest},
	{auth.ErrBadCredentials, http.StatusUnauthorized},
	{student.ErrNotFound, http.StatusNotFound},
	{account.ErrNotFound, http.StatusNotFound},
	{issue.ErrNotFound, http.StatusNotFound},
	{student.ErrDuplicate, http.StatusConflict},
	{student.ErrTerminated, http.StatusConflict},
	{student.ErrNoChange, http.StatusConflict},
	{attendance.ErrMarkInFlight, http.StatusConflict},
	{attendance.ErrNotActive, http.StatusConflict},
	{attendance.ErrStale, http.StatusConflict},
	{issue.ErrAlreadyResolved, http.StatusConflict},
}

func statusOf(err error) int {
	for _, m := range statusByErr {
		if errors.Is(err, m.err) {
			return m.code
		}
	}
	return http.StatusInternalServerError
}

// fail writes err as {"message": ...}. Unknown errors are logged and hidden.
func fail(c *gin.Context, err error) {
	code := statusOf(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		log.Printf("%s %s failed: %v", c.Request.Method, c.FullPath(), err)
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(code, gin.H{"message": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": msg})
}

// dateQuery reads an optional ISO date query parameter.
func dateQuery(c *gin.Context, name string) (calendar.Date, error) {
	v := c.Query(name)
	if v == "" {
		return calendar.Date{}, nil
	}
	return calendar.Parse(v)
}
