package auth

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

func TestMustRegister(t *testing.T) {
	v := validator.New()
	alwaysValid := func(validator.FieldLevel) bool { return true }

	require.NotPanics(t, func() { mustRegister(v, "anything", alwaysValid) })
	require.PanicsWithValue(t, `register "" validation: function Key cannot be empty`, func() {
		mustRegister(v, "", alwaysValid)
	})
	require.NotPanics(t, func() { NewValidator() })
}
