package service

import (
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/admissions-api/internal/dto"
)

// NewValidator returns a validator with the custom tags used by request DTOs.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("businessflag", func(fl validator.FieldLevel) bool {
		return dto.ParseFlag(fl.Field().String()) != nil
	})
	return v
}
