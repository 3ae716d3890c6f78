package validator_test

import (
	"errors"
	"testing"

	govalidator "github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuanvumaihuynh/product-tracker/pkg/validator"
)

type color string

func (c color) Validate() error {
	if c == "red" || c == "blue" {
		return nil
	}
	return errors.New("unknown color")
}

type payload struct {
	Name    string   `json:"name" validate:"required,notblank"`
	Color   color    `json:"color" validate:"required,enum"`
	Link    string   `json:"link" validate:"required,url"`
	Tags    []string `json:"tags" validate:"omitempty,dive,notblank"`
	Comment *string  `json:"comment" validate:"omitempty,notblank"`
}

func TestDefaultValidator(t *testing.T) {
	v, err := validator.NewDefaultValidator()
	require.NoError(t, err)

	t.Run("Should accept valid payload", func(t *testing.T) {
		err := v.Validate(payload{Name: "x", Color: "red", Link: "http://x", Tags: []string{"a"}})
		assert.NoError(t, err)
	})

	t.Run("Should report json field names and messages", func(t *testing.T) {
		blank := "  "
		err := v.Validate(payload{Name: " ", Color: "green", Link: "not a url", Comment: &blank})
		require.Error(t, err)
		assert.True(t, validator.IsValidationError(err))

		var verrs govalidator.ValidationErrors
		require.True(t, errors.As(err, &verrs))

		messages := map[string]string{}
		for _, fe := range verrs {
			messages[fe.Field()] = validator.ValidationErrorMessage(fe)
		}

		assert.Equal(t, "must not be blank", messages["name"])
		assert.Equal(t, "invalid enum value: green", messages["color"])
		assert.Equal(t, "must be a valid URL", messages["link"])
		assert.Equal(t, "must not be blank", messages["comment"])
	})
}
