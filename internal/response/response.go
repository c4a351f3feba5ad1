// Package response writes the uniform JSON envelope and translates errors into it.
package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/and161185/comfy/internal/errs"
)

// TimeLayout is the envelope timestamp format (ISO 8601, UTC, milliseconds).
const TimeLayout = "2006-01-02T15:04:05.000Z"

// QuotaExceededDetail is shown when the daily AI ceiling is reached.
const QuotaExceededDetail = "You have reached your daily limit for AI assessments. Please try again tomorrow."

// Envelope is the body of every API response.
type Envelope struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Data      any    `json:"data"`
	Error     any    `json:"error"`
	Timestamp string `json:"timestamp"`
}

// ErrorBody is the error member of a failed response.
type ErrorBody struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// FieldErrors reports request validation failures per field.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+f[k])
	}
	return "validation: " + strings.Join(parts, "; ")
}

func (f FieldErrors) Unwrap() error { return errs.ErrValidation }

var now = time.Now

// JSON writes an envelope; success follows the status class.
func JSON(w http.ResponseWriter, status int, message string, data any) {
	write(w, status, Envelope{Message: message, Data: data})
}

// OK writes a 200 envelope.
func OK(w http.ResponseWriter, message string, data any) { JSON(w, http.StatusOK, message, data) }

// Created writes a 201 envelope.
func Created(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusCreated, message, data)
}

// Fail writes a failed envelope with a plain error message.
func Fail(w http.ResponseWriter, status int, message, detail string) {
	var body any
	if detail != "" {
		body = ErrorBody{Message: detail}
	}
	write(w, status, Envelope{Message: message, Error: body})
}

func write(w http.ResponseWriter, status int, env Envelope) {
	env.Success = status >= 200 && status < 300
	env.Timestamp = now().UTC().Format(TimeLayout)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// Problem is an error translated for the client.
type Problem struct {
	Status  int
	Message string
	Error   ErrorBody
}

// Translate maps err onto status, message and client-safe detail.
// Internal error text is exposed only when dev is set.
func Translate(err error, dev bool) Problem {
	var fields FieldErrors
	switch {
	case errors.As(err, &fields):
		return Problem{http.StatusBadRequest, "Validation Error", ErrorBody{Message: "Invalid request", Fields: fields}}
	case errors.Is(err, errs.ErrValidation):
		return Problem{http.StatusBadRequest, "Validation Error", ErrorBody{Message: reason(err, errs.ErrValidation)}}
	case errors.Is(err, errs.ErrAlreadyExists):
		return Problem{http.StatusBadRequest, "Registration failed", ErrorBody{Message: "Email already in use"}}
	case errors.Is(err, errs.ErrUnknownUser):
		return Problem{http.StatusUnauthorized, "Not authorized", ErrorBody{Message: "User no longer exists"}}
	case errors.Is(err, errs.ErrInvalidToken):
		return Problem{http.StatusUnauthorized, "Not authorized", ErrorBody{Message: "Invalid or expired token"}}
	case errors.Is(err, errs.ErrUnauthorized):
		return Problem{http.StatusUnauthorized, "Not authorized", ErrorBody{Message: reason(err, errs.ErrUnauthorized)}}
	case errors.Is(err, errs.ErrForbidden):
		return Problem{http.StatusForbidden, "User role is not authorized to access this route", ErrorBody{Message: reason(err, errs.ErrForbidden)}}
	case errors.Is(err, errs.ErrQuotaExceeded):
		return Problem{http.StatusTooManyRequests, "AI generation limit reached", ErrorBody{Message: QuotaExceededDetail}}
	case errors.Is(err, errs.ErrRateLimited):
		return Problem{http.StatusTooManyRequests, "Too many requests", ErrorBody{Message: reason(err, errs.ErrRateLimited)}}
	case errors.Is(err, errs.ErrUpstreamUnavailable):
		return Problem{http.StatusServiceUnavailable, "AI Service Unavailable", ErrorBody{Message: "AI provider is not available"}}
	case errors.Is(err, errs.ErrNotFound):
		return Problem{http.StatusNotFound, "Not found", ErrorBody{Message: reason(err, errs.ErrNotFound)}}
	}
	p := Problem{Status: http.StatusInternalServerError, Message: "Internal Server Error"}
	if dev && err != nil {
		p.Error.Message = err.Error()
	}
	return p
}

// Error translates err and writes it.
func Error(w http.ResponseWriter, err error, dev bool) {
	p := Translate(err, dev)
	writeProblem(w, p)
}

// ErrorAs is Error with a caller-chosen envelope message (e.g. "Login failed").
func ErrorAs(w http.ResponseWriter, message string, err error, dev bool) {
	p := Translate(err, dev)
	if p.Status < http.StatusInternalServerError {
		p.Message = message
	}
	writeProblem(w, p)
}

func writeProblem(w http.ResponseWriter, p Problem) {
	var body any
	if p.Error.Message != "" || len(p.Error.Fields) > 0 {
		body = p.Error
	}
	write(w, p.Status, Envelope{Message: p.Message, Error: body})
}

// reason returns the text wrapped around a sentinel, capitalized,
// or a generic phrase when there is none.
func reason(err, sentinel error) string {
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if i := strings.Index(msg, prefix); i >= 0 {
		msg = msg[i+len(prefix):]
	} else {
		msg = sentinel.Error()
	}
	if msg == "" {
		return msg
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
