package api

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cuejson "cuelang.org/go/encoding/json"
)

// Schema is a compiled CUE definition used to validate API responses
// before they are decoded into typed structs.
type Schema struct {
	val cue.Value
}

// CompileSchema compiles CUE source and returns the definition at
// defPath (e.g. "#Repodata") as a reusable Schema.
func CompileSchema(src, defPath string) (*Schema, error) {
	cctx := cuecontext.New()
	root := cctx.CompileString(src)
	if err := root.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	def := root.LookupPath(cue.ParsePath(defPath))
	if err := def.Err(); err != nil {
		return nil, fmt.Errorf("schema definition %s: %w", defPath, err)
	}
	return &Schema{val: def}, nil
}

// MustCompileSchema is CompileSchema for package-level schema values
// compiled from embedded sources. It panics on error, which can only
// happen if the embedded schema itself is broken.
func MustCompileSchema(src, defPath string) *Schema {
	s, err := CompileSchema(src, defPath)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks raw JSON bytes against the schema.
func (s *Schema) Validate(body []byte) error {
	expr, err := cuejson.Extract("response.json", body)
	if err != nil {
		return WrapError(ErrBadJSON, "failed to parse JSON response", err)
	}
	data := s.val.Context().BuildExpr(expr)
	if err := data.Err(); err != nil {
		return WrapError(ErrBadJSON, "failed to build JSON value", err)
	}
	if err := s.val.Unify(data).Validate(cue.Final()); err != nil {
		return WrapError(ErrSchema, "returned JSON does not match minimum schema", err)
	}
	return nil
}
