package persistence

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsDataError_RecognizesIntegrityViolationCodes(t *testing.T) {
	for _, code := range []string{"23505", "23502", "23503", "23514", "22P02"} {
		err := &pgconn.PgError{Code: code}
		assert.True(t, isDataError(err), code)
	}
}

func TestIsDataError_FalseForOtherErrors(t *testing.T) {
	assert.False(t, isDataError(errors.New("connection reset")))
	assert.False(t, isDataError(&pgconn.PgError{Code: "40001"}))
}

func TestClassify_WrapsNonDataErrorsAsSystemFailure(t *testing.T) {
	err := classify(errors.New("connection reset"))
	var sf *SystemFailure
	assert.ErrorAs(t, err, &sf)
}

func TestClassify_LeavesDataErrorsUnwrapped(t *testing.T) {
	dataErr := &pgconn.PgError{Code: "23505"}
	err := classify(dataErr)
	var sf *SystemFailure
	assert.False(t, errors.As(err, &sf))
	assert.Equal(t, dataErr, err)
}

func TestClassify_NilIsNil(t *testing.T) {
	assert.NoError(t, classify(nil))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
