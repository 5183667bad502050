package client

import (
	"errors"
	"fmt"
)

// APIError описывает неуспешный ответ удалённого сервиса. Detail содержит
// человекочитаемое сообщение из поля "detail" тела ответа, если оно есть.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api: %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("api: unexpected status %d", e.StatusCode)
}

// ErrorDetail извлекает серверное сообщение detail из err, если err является
// *APIError с непустым Detail, иначе возвращает fallback.
func ErrorDetail(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Detail != "" {
		return apiErr.Detail
	}
	return fallback
}
