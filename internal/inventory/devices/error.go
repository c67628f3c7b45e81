package devices

import (
	"errors"
	"fmt"
	"net/http"
)

// ===== Error model =====
type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeConflict        Code = "CONFLICT"
	CodeUnauthorized    Code = "UNAUTHORIZED"
	CodeInternal        Code = "INTERNAL"
)

type APIError struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string          { return fmt.Sprintf("%s: %s", e.Code, e.Message) }
func ErrInvalid(msg string) *APIError      { return &APIError{Code: CodeInvalidArgument, Message: msg} }
func ErrNotFound(msg string) *APIError     { return &APIError{Code: CodeNotFound, Message: msg} }
func ErrConflict(msg string) *APIError     { return &APIError{Code: CodeConflict, Message: msg} }
func ErrUnauthorized(msg string) *APIError { return &APIError{Code: CodeUnauthorized, Message: msg} }
func ErrInternal(msg string) *APIError     { return &APIError{Code: CodeInternal, Message: msg} }

func toHTTPStatus(err error) int {
	var api *APIError
	if errors.As(err, &api) {
		switch api.Code {
		case CodeInvalidArgument:
			return http.StatusBadRequest
		case CodeNotFound:
			return http.StatusNotFound
		case CodeConflict:
			return http.StatusConflict
		case CodeUnauthorized:
			return http.StatusUnauthorized
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}

// ===== response body =====
type errDTO struct {
	Error *APIError `json:"error"`
}

func newErrDTO(err error) errDTO {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return errDTO{Error: apiErr}
	}
	return errDTO{Error: ErrInternal(err.Error())}
}

// 貸出フォーム（モーダル）はエラーを {"error": "..."} の形で受け取る
func flatErr(err error) map[string]string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return map[string]string{"error": apiErr.Message}
	}
	return map[string]string{"error": "internal error"}
}
