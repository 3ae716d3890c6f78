package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tuanvumaihuynh/product-tracker/internal/model"
)

func TestMethodologyValidate(t *testing.T) {
	assert.NoError(t, model.MethodologyAgile.Validate())
	assert.NoError(t, model.MethodologyWaterfall.Validate())
	assert.Error(t, model.Methodology("agile").Validate())
	assert.Error(t, model.Methodology("").Validate())
}

func TestProductClone(t *testing.T) {
	p := model.Product{ID: 1, Developers: []string{"D1"}}

	c := p.Clone()
	c.Developers[0] = "D2"

	assert.Equal(t, "D1", p.Developers[0])
}
