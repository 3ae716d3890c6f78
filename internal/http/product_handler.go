package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/tuanvumaihuynh/product-tracker/internal/apperr"
	"github.com/tuanvumaihuynh/product-tracker/internal/service"
	"github.com/tuanvumaihuynh/product-tracker/pkg/validator"
)

type productHandler struct {
	productSvc service.ProductService
	validator  validator.Validator
}

func newProductHandler(productSvc service.ProductService, v validator.Validator) *productHandler {
	return &productHandler{
		productSvc: productSvc,
		validator:  v,
	}
}

func (h *productHandler) ListProducts(w http.ResponseWriter, r *http.Request) error {
	params, err := bindListProductsParams(r)
	if err != nil {
		return err
	}

	products, err := h.productSvc.ListProducts(r.Context(), params)
	if err != nil {
		return fmt.Errorf("product service list products: %w", err)
	}

	items := make([]ProductResponse, 0, len(products))
	for _, product := range products {
		items = append(items, newProductResponse(product))
	}

	return writeJSON(w, http.StatusOK, items)
}

func (h *productHandler) GetProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := bindProductID(r)
	if err != nil {
		return err
	}

	product, err := h.productSvc.GetProduct(r.Context(), id)
	if err != nil {
		return fmt.Errorf("product service get product: %w", err)
	}

	return writeJSON(w, http.StatusOK, newProductResponse(product))
}

func (h *productHandler) CreateProduct(w http.ResponseWriter, r *http.Request) error {
	var req CreateProductRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		return err
	}

	product, err := h.productSvc.CreateProduct(r.Context(), req.toParams())
	if err != nil {
		return fmt.Errorf("product service create product: %w", err)
	}

	return writeJSON(w, http.StatusCreated, CreateProductResponse{
		Success: true,
		Message: productAddedMessage,
		Data:    newProductResponse(product),
	})
}

func (h *productHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := bindProductID(r)
	if err != nil {
		return err
	}

	var req UpdateProductRequest
	if err := h.decodeAndValidate(r, &req); err != nil {
		return err
	}

	product, err := h.productSvc.UpdateProduct(r.Context(), id, req.toParams())
	if err != nil {
		return fmt.Errorf("product service update product: %w", err)
	}

	return writeJSON(w, http.StatusOK, UpdateProductResponse{
		Success: true,
		Data:    newProductResponse(product),
	})
}

func (h *productHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) error {
	id, err := bindProductID(r)
	if err != nil {
		return err
	}

	if err := h.productSvc.DeleteProduct(r.Context(), id); err != nil {
		return fmt.Errorf("product service delete product: %w", err)
	}

	return writeJSON(w, http.StatusOK, DeleteProductResponse{
		Success: true,
		Message: productDeletedMessage,
	})
}

// decodeAndValidate reads a single JSON object into dst, rejecting unknown
// fields, then runs the struct validation rules.
func (h *productHandler) decodeAndValidate(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return apperr.RequestTooLargeErr.WrapParent(err)
		}
		return apperr.InvalidRequestBodyErr.WrapParent(err)
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return apperr.InvalidRequestBodyErr.WrapParent(errors.New("body must contain a single JSON object"))
	}

	if err := h.validator.Validate(dst); err != nil {
		return apperr.ValidationErr.WrapParent(err)
	}

	return nil
}
