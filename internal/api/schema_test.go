package api

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileSchema_BadSource(t *testing.T) {
	_, err := CompileSchema(`#Thing: {`, "#Thing")
	assert.Error(t, err)
}

func TestCompileSchema_MissingDefinition(t *testing.T) {
	_, err := CompileSchema(`#Thing: {name!: string}`, "#Other")
	assert.Error(t, err)
}

func TestMustCompileSchema_PanicsOnBadSchema(t *testing.T) {
	assert.Panics(t, func() {
		MustCompileSchema(`#Broken: {`, "#Broken")
	})
}

func TestSchema_Validate_OptionalFields(t *testing.T) {
	s := testSchema(t)

	// tags is optional; unmodeled fields are tolerated.
	require.NoError(t, s.Validate([]byte(`{"name":"a","count":1}`)))
	require.NoError(t, s.Validate([]byte(`{"name":"a","count":1,"tags":["x"]}`)))
	require.NoError(t, s.Validate([]byte(`{"name":"a","count":1,"unmodeled":true}`)))

	err := s.Validate([]byte(`{"name":"a","count":1,"tags":[2]}`))
	assert.Error(t, err)
}
