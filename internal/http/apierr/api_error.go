package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	govalidator "github.com/go-playground/validator/v10"

	"github.com/tuanvumaihuynh/product-tracker/internal/apperr"
	"github.com/tuanvumaihuynh/product-tracker/pkg/validator"
	"github.com/tuanvumaihuynh/product-tracker/pkg/zerror"
)

const internalServerErrorCode = "INTERNAL_SERVER_ERROR"

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the error response for the API.
type ErrorResponse struct {
	Success bool          `json:"success"`
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details *[]FieldError `json:"details,omitempty"`

	// StatusCode is the status code for the error response.
	StatusCode int `json:"-"`
}

// InvalidParamFormatError reports a path or query parameter that could not be
// bound to its Go type.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %v", e.ParamName, e.Err)
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

func New(err error) ErrorResponse {
	return errorToErrorResponse(err)
}

var InternalServerErr = ErrorResponse{
	Success:    false,
	Code:       internalServerErrorCode,
	Message:    "an unknown error occurred",
	StatusCode: http.StatusInternalServerError,
}

func errorToErrorResponse(err error) ErrorResponse {
	var validationErrs govalidator.ValidationErrors
	if errors.As(err, &validationErrs) {
		details := make([]FieldError, len(validationErrs))
		for i, fe := range validationErrs {
			details[i] = FieldError{
				Field:   fe.Field(),
				Message: validator.ValidationErrorMessage(fe),
			}
		}

		return ErrorResponse{
			Code:       apperr.ValidationErrorCode,
			Message:    "validation error",
			Details:    &details,
			StatusCode: http.StatusBadRequest,
		}
	}

	var paramErr *InvalidParamFormatError
	if errors.As(err, &paramErr) {
		return ErrorResponse{
			Code:    apperr.InvalidParameterErrorCode,
			Message: fmt.Sprintf("invalid format for parameter %s", paramErr.ParamName),
			Details: &[]FieldError{{
				Field:   paramErr.ParamName,
				Message: "is invalid",
			}},
			StatusCode: http.StatusBadRequest,
		}
	}

	// Checked before RequestError: the OpenAPI validator reads the body first
	// and wraps the size limit failure.
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return ErrorResponse{
			Code:       apperr.RequestTooLargeErr.Code(),
			Message:    apperr.RequestTooLargeErr.Msg(),
			StatusCode: http.StatusRequestEntityTooLarge,
		}
	}

	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		return requestErrorResponse(reqErr)
	}

	var zErr zerror.ZError
	if errors.As(err, &zErr) {
		return ErrorResponse{
			Code:       zErr.Code(),
			Message:    zErr.Msg(),
			StatusCode: ZErrorStatusToHTTPStatus(zErr.Status()),
		}
	}

	return InternalServerErr
}

// requestErrorResponse describes a request rejected by the OpenAPI validator.
func requestErrorResponse(reqErr *openapi3filter.RequestError) ErrorResponse {
	res := ErrorResponse{
		Code:       apperr.ValidationErrorCode,
		Message:    "validation error",
		StatusCode: http.StatusBadRequest,
	}

	field := "body"
	if reqErr.Parameter != nil {
		field = reqErr.Parameter.Name
	}

	message := reqErr.Reason
	var schemaErr *openapi3.SchemaError
	if errors.As(reqErr.Err, &schemaErr) {
		if ptr := schemaErr.JSONPointer(); len(ptr) > 0 {
			field = ptr[len(ptr)-1]
		}
		message = schemaErr.Reason
	}
	if message == "" {
		message = "is invalid"
	}

	res.Details = &[]FieldError{{Field: field, Message: message}}
	return res
}

func ZErrorStatusToHTTPStatus(status zerror.Status) int {
	switch status {
	case zerror.StatusUnauthorized:
		return http.StatusUnauthorized
	case zerror.StatusForbidden:
		return http.StatusForbidden
	case zerror.StatusNotFound:
		return http.StatusNotFound
	case zerror.StatusUnprocessableEntity:
		return http.StatusUnprocessableEntity
	case zerror.StatusConflict:
		return http.StatusConflict
	case zerror.StatusTooManyRequests:
		return http.StatusTooManyRequests
	case zerror.StatusBadRequest:
		return http.StatusBadRequest
	case zerror.StatusValidationFailed:
		return http.StatusBadRequest
	case zerror.StatusPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case zerror.StatusUnknown, zerror.StatusInternalServerError:
		return http.StatusInternalServerError
	case zerror.StatusTimeout:
		return http.StatusGatewayTimeout
	case zerror.StatusNotImplemented:
		return http.StatusNotImplemented
	case zerror.StatusBadGateway:
		return http.StatusBadGateway
	case zerror.StatusServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
