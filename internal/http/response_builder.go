package http

import (
	"encoding/json"
	"net/http"

	"budgeting/internal/core"
	"budgeting/internal/remote"
)

// ResponseBuilder provides a fluent API for building JSON responses.
type ResponseBuilder struct {
	statusCode int
	body       []byte
	headers    map[string]string
	err        error
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    map[string]string{"Content-Type": "application/json"},
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON marshals v as the body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body, b.err = json.Marshal(v)
	return b
}

// Raw sets an already encoded body.
func (b *ResponseBuilder) Raw(body []byte) *ResponseBuilder {
	b.body = body
	return b
}

// Item encodes a single line item in the category's wire form.
func (b *ResponseBuilder) Item(c core.Category, item core.LineItem) *ResponseBuilder {
	b.body, b.err = remote.EncodeItem(c, item)
	return b
}

// Items encodes a list of line items in the category's wire form.
func (b *ResponseBuilder) Items(c core.Category, items []core.LineItem) *ResponseBuilder {
	raws := make([]json.RawMessage, 0, len(items))
	for _, it := range items {
		raw, err := remote.EncodeItem(c, it)
		if err != nil {
			b.err = err
			return b
		}
		raws = append(raws, raw)
	}
	return b.JSON(raws)
}

// Write sends the built response. An encoding failure turns into a 500.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	if b.err != nil {
		b = ErrorResponse(http.StatusInternalServerError, "failed to encode response")
	}
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

type errorBody struct {
	Error string `json:"error"`
}

type ackBody struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
	Count   int    `json:"count,omitempty"`
}

// ErrorResponse creates a JSON error response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewJSONResponse().Status(statusCode).JSON(errorBody{Error: message})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnauthorizedError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusUnauthorized, message).Header("WWW-Authenticate", "Bearer")
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, message)
}

func RequestTooLargeError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusRequestEntityTooLarge, message)
}

func InternalServerError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func TooManyRequestsError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, message)
}
