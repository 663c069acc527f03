package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCitationValidate(t *testing.T) {
	valid := Citation{Source: "https://arxiv.org/abs/1234.5678", Score: 0.73}
	assert.NoError(t, valid.Validate())

	// ---- missing source ----
	err := Citation{Score: 0.5}.Validate()
	require.Error(t, err)
	var ice *InvalidCitationError
	require.ErrorAs(t, err, &ice)
	assert.Contains(t, ice.Reason, "source")

	// ---- score bounds ----
	assert.Error(t, Citation{Source: "doi:10.1/x", Score: -0.1}.Validate())
	assert.Error(t, Citation{Source: "doi:10.1/x", Score: 1.01}.Validate())
	assert.NoError(t, Citation{Source: "doi:10.1/x", Score: 0}.Validate())
	assert.NoError(t, Citation{Source: "doi:10.1/x", Score: 1}.Validate())
}
