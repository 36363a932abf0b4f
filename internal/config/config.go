// Package config validates the tree configuration that cmd/geoquadserver
// reads from its flags (the flags themselves are parsed by the command, the
// way tormol/AIS's server2/main.go parses flags directly into package-level
// vars), with go-playground/validator checking the result before any tree
// gets built.
package config

import "github.com/go-playground/validator/v10"

// TreeConfig is the structural parameter set every CLI tool needs to
// construct a quadtree.Tree or quadtree.RectTree: bounds plus the two
// split-policy knobs.
type TreeConfig struct {
	MinX float64 `validate:"ltfield=MaxX"`
	MinY float64 `validate:"ltfield=MaxY"`
	MaxX float64
	MaxY float64
	Capacity int `validate:"gte=1"`
	MaxDepth int `validate:"gte=-1"`
}

var validate = validator.New()

// Validate checks the struct tags above, translating the first failing
// field into a plain error instead of exposing validator's reflection-heavy
// FieldError type to callers.
func (c TreeConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return &ValidationError{Field: fe.Field(), Tag: fe.Tag()}
		}
		return err
	}
	return nil
}

// ValidationError names the first struct tag that failed, without pulling
// the validator package's types into every caller's error-handling path.
type ValidationError struct {
	Field string
	Tag   string
}

func (e *ValidationError) Error() string {
	return "config: field " + e.Field + " failed validation \"" + e.Tag + "\""
}
