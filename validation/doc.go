// Package validation checks request input and reports failures as
// VALIDATION_ERROR AppErrors with per-field details.
//
// Request bodies use struct tags through go-playground/validator:
//
//	type SignInForm struct {
//	    Email  string `json:"email" validate:"required,email"`
//	    Passwd string `json:"passwd" validate:"required"`
//	}
//	err := validation.Validate(form)
//
// Path and query parameters use the collecting Validator:
//
//	v := validation.New()
//	chatID := v.ID("id", c.Param("id"))
//	limit := v.OptionalInt("limit", c.Query("limit"), 0)
//	if err := v.Validate(); err != nil { ... }
package validation
