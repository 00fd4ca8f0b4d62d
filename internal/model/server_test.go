package model

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arko007/chexray-api/internal/conditions"
)

func TestValidateClasses(t *testing.T) {
	req := require.New(t)

	req.NoError(validateClasses(conditions.Names[:]))

	req.Error(validateClasses(conditions.Names[:conditions.Count-1]))
	req.Error(validateClasses(nil))

	// Same set in a different order must be rejected: output index i is
	// bound to vocabulary entry i.
	swapped := make([]string, conditions.Count)
	copy(swapped, conditions.Names[:])
	swapped[0], swapped[1] = swapped[1], swapped[0]
	req.Error(validateClasses(swapped))
}
