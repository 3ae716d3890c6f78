package apperr

import "github.com/tuanvumaihuynh/product-tracker/pkg/zerror"

const (
	ValidationErrorCode         = "VALIDATION_FAILED"
	InvalidRequestBodyErrorCode = "INVALID_REQUEST_BODY"
	InvalidParameterErrorCode   = "INVALID_PARAMETER"
	RequestTooLargeErrorCode    = "REQUEST_TOO_LARGE"
	ProductNotFoundErrorCode    = "PRODUCT_NOT_FOUND"
	StorageErrorCode            = "STORAGE_ERROR"
	TooManyRequestsErrorCode    = "TOO_MANY_REQUESTS"
)

// StorageErr hides persistence failures behind a generic message; the parent
// error is kept for logs only.
var (
	ValidationErr         = zerror.NewValidationFailed(ValidationErrorCode, "validation error")
	InvalidRequestBodyErr = zerror.NewBadRequest(InvalidRequestBodyErrorCode, "invalid request body")
	InvalidParameterErr   = zerror.NewBadRequest(InvalidParameterErrorCode, "invalid parameter")
	RequestTooLargeErr    = zerror.NewPayloadTooLarge(RequestTooLargeErrorCode, "request body too large")
	ProductNotFoundErr    = zerror.NewNotFound(ProductNotFoundErrorCode, "Product not found")
	StorageErr            = zerror.NewInternalServerError(StorageErrorCode, "an internal storage error occurred")
	TooManyRequestsErr    = zerror.NewTooManyRequests(TooManyRequestsErrorCode, "too many requests")
)
