package internal

import (
	"evroam/utility"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyField(t *testing.T) {
	field, err := propertyField("energy_mix")
	require.NoError(t, err)
	assert.Equal(t, "energy_mix", field)

	field, err = propertyField("operator_id")
	require.NoError(t, err)
	assert.Equal(t, "properties.operator_id", field, "generic names never reach record fields")

	for _, name := range []string{"", "name.first", "$unset"} {
		_, err = propertyField(name)
		assert.ErrorIs(t, err, utility.ErrInvalidProperty, name)
	}
}
