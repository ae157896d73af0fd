// Package validation checks request input and reports failures as
// INVALID_INPUT application errors carrying per-field details.
//
// Request bodies are validated from struct tags:
//
//	type NewMessage struct {
//	    Content string `json:"content" validate:"required,notblank,max=4096"`
//	}
//	err := validation.Validate(in)
//
// Query and path parameters use the collecting Validator:
//
//	v := validation.New()
//	v.Range("limit", limit, 1, 100)
//	err := v.Validate()
package validation
