package errs

import (
	"errors"
	"fmt"
	"testing"

	"gotest.tools/v3/assert"
)

func TestMissingKeyUnwrapsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("build model: %w", MissingKey("capacity factor", "wind|1|p1|h1"))

	var dErr *DataIntegrityError
	assert.Assert(t, errors.As(err, &dErr))
	assert.Equal(t, dErr.Source, "capacity factor")
	assert.ErrorContains(t, err, "no capacity factor entry for wind|1|p1|h1")
}

func TestInvalidCarriesDetail(t *testing.T) {
	err := Invalid("resource column", "wind_1", "want technology_class_region")
	assert.Error(t, err, "data integrity: resource column wind_1: want technology_class_region")
}

func TestSolverErrorUnwrap(t *testing.T) {
	cause := errors.New("singular basis")
	err := &SolverError{Status: "Error", Err: cause}

	assert.Assert(t, errors.Is(err, cause))
	assert.Error(t, &SolverError{Status: "Infeasible"}, "solver: status Infeasible")
}

func TestConfigurationError(t *testing.T) {
	err := &ConfigurationError{Field: "crf", Reason: "must be > 0"}
	assert.Error(t, err, "configuration: crf must be > 0")
}
