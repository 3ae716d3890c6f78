package model

import (
	"fmt"
	"slices"
	"time"
)

// Methodology is the delivery methodology a product team follows.
type Methodology string

const (
	MethodologyAgile     Methodology = "Agile"
	MethodologyWaterfall Methodology = "Waterfall"
)

// Methodologies lists every valid methodology.
var Methodologies = []Methodology{MethodologyAgile, MethodologyWaterfall}

// Validate implements the enum contract used by the request validator.
func (m Methodology) Validate() error {
	if slices.Contains(Methodologies, m) {
		return nil
	}
	return fmt.Errorf("invalid methodology: %q", string(m))
}

type Product struct {
	ID              int64       `json:"productId"`
	Name            string      `json:"productName"`
	OwnerName       string      `json:"productOwnerName"`
	Developers      []string    `json:"developers"`
	ScrumMasterName string      `json:"scrumMasterName"`
	StartDate       time.Time   `json:"startDate"`
	Methodology     Methodology `json:"methodology"`
	Location        string      `json:"location"`
	CreatedAt       time.Time   `json:"createdAt"`
	UpdatedAt       time.Time   `json:"updatedAt"`
}

// Clone returns a copy that shares no slices with p.
func (p Product) Clone() Product {
	p.Developers = slices.Clone(p.Developers)
	return p
}
