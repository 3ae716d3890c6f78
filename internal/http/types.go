package http

import (
	"time"

	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/tuanvumaihuynh/product-tracker/internal/model"
	"github.com/tuanvumaihuynh/product-tracker/internal/service"
)

const (
	productAddedMessage   = "Product added successfully"
	productDeletedMessage = "Product deleted successfully"
	welcomeMessage        = "Welcome to the product tracker API."
)

type ProductResponse struct {
	ProductID        int64              `json:"productId"`
	ProductName      string             `json:"productName"`
	ProductOwnerName string             `json:"productOwnerName"`
	Developers       []string           `json:"developers"`
	ScrumMasterName  string             `json:"scrumMasterName"`
	StartDate        openapi_types.Date `json:"startDate"`
	Methodology      model.Methodology  `json:"methodology"`
	Location         string             `json:"location"`
}

type CreateProductRequest struct {
	ProductName      string              `json:"productName" validate:"required,notblank"`
	ProductOwnerName string              `json:"productOwnerName" validate:"required,notblank"`
	Developers       []string            `json:"developers" validate:"omitempty,dive,notblank"`
	ScrumMasterName  string              `json:"scrumMasterName" validate:"required,notblank"`
	StartDate        *openapi_types.Date `json:"startDate" validate:"required"`
	Methodology      model.Methodology   `json:"methodology" validate:"required,enum"`
	Location         string              `json:"location" validate:"required,url"`
}

// UpdateProductRequest carries a partial product. ProductID is accepted so
// clients can send back a full record, but it never changes the target.
type UpdateProductRequest struct {
	ProductID        *int64              `json:"productId,omitempty"`
	ProductName      *string             `json:"productName,omitempty" validate:"omitempty,notblank"`
	ProductOwnerName *string             `json:"productOwnerName,omitempty" validate:"omitempty,notblank"`
	Developers       *[]string           `json:"developers,omitempty" validate:"omitempty,dive,notblank"`
	ScrumMasterName  *string             `json:"scrumMasterName,omitempty" validate:"omitempty,notblank"`
	StartDate        *openapi_types.Date `json:"startDate,omitempty"`
	Methodology      *model.Methodology  `json:"methodology,omitempty" validate:"omitempty,enum"`
	Location         *string             `json:"location,omitempty" validate:"omitempty,url"`
}

type CreateProductResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    ProductResponse `json:"data"`
}

type UpdateProductResponse struct {
	Success bool            `json:"success"`
	Data    ProductResponse `json:"data"`
}

type DeleteProductResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type WelcomeResponse struct {
	Message string `json:"message"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

func newProductResponse(p model.Product) ProductResponse {
	developers := p.Developers
	if developers == nil {
		developers = []string{}
	}

	return ProductResponse{
		ProductID:        p.ID,
		ProductName:      p.Name,
		ProductOwnerName: p.OwnerName,
		Developers:       developers,
		ScrumMasterName:  p.ScrumMasterName,
		StartDate:        openapi_types.Date{Time: p.StartDate},
		Methodology:      p.Methodology,
		Location:         p.Location,
	}
}

func (req CreateProductRequest) toParams() service.CreateProductParams {
	return service.CreateProductParams{
		Name:            req.ProductName,
		OwnerName:       req.ProductOwnerName,
		Developers:      req.Developers,
		ScrumMasterName: req.ScrumMasterName,
		StartDate:       dateToTime(*req.StartDate),
		Methodology:     req.Methodology,
		Location:        req.Location,
	}
}

func (req UpdateProductRequest) toParams() service.UpdateProductParams {
	params := service.UpdateProductParams{
		Name:            req.ProductName,
		OwnerName:       req.ProductOwnerName,
		Developers:      req.Developers,
		ScrumMasterName: req.ScrumMasterName,
		Methodology:     req.Methodology,
		Location:        req.Location,
	}
	if req.StartDate != nil {
		startDate := dateToTime(*req.StartDate)
		params.StartDate = &startDate
	}
	return params
}

func dateToTime(d openapi_types.Date) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}
