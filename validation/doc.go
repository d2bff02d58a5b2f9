// Package validation checks configuration values.
//
// Struct tags go through go-playground/validator:
//
//	type Config struct {
//	    Kind    string `mapstructure:"kind" validate:"required,oneof=pool worker sync"`
//	    Workers int    `mapstructure:"workers" validate:"gte=0"`
//	}
//	err := validation.Validate(cfg)
//
// Hand-written checks collect errors with a Validator:
//
//	v := validation.New("logging")
//	v.OneOf("level", cfg.Level, levels)
//	err := v.Validate()
//
// Both return an *errors.AppError with code INVALID_INPUT listing every
// failing field.
package validation
