package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/tuanvumaihuynh/product-tracker/internal/http/apierr"
	"github.com/tuanvumaihuynh/product-tracker/internal/service"
)

const productIDParam = "productId"

func bindProductID(r *http.Request) (int64, error) {
	var id int64
	if err := runtime.BindStyledParameterWithOptions("simple", productIDParam, chi.URLParam(r, productIDParam), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	}); err != nil {
		return 0, &apierr.InvalidParamFormatError{ParamName: productIDParam, Err: err}
	}

	return id, nil
}

func bindListProductsParams(r *http.Request) (service.ListProductsParams, error) {
	var params service.ListProductsParams

	if err := runtime.BindQueryParameter("form", true, false, "scrumMaster", r.URL.Query(), &params.ScrumMaster); err != nil {
		return params, &apierr.InvalidParamFormatError{ParamName: "scrumMaster", Err: err}
	}
	if err := runtime.BindQueryParameter("form", true, false, "developer", r.URL.Query(), &params.Developer); err != nil {
		return params, &apierr.InvalidParamFormatError{ParamName: "developer", Err: err}
	}

	return params, nil
}
