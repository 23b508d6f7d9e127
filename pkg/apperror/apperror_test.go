package apperror

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPersistenceKeepsClassifiedErrors(t *testing.T) {
	notFound := NotFound("contract_not_found")
	assert.Same(t, notFound, Persistence(notFound))

	raw := errors.New("connection reset")
	wrapped := Persistence(raw)
	assert.True(t, IsPersistence(wrapped))
	assert.ErrorIs(t, wrapped, raw)
	assert.Nil(t, Persistence(nil))
}

func TestDetailKeepsSentinel(t *testing.T) {
	sentinel := Validation("invalid_split_sum")
	err := Detail(sentinel, "sum=%s", "99")

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Equal(t, "invalid_split_sum", CodeOf(err))
	assert.Equal(t, "invalid_split_sum: sum=99", err.Error())
}

func TestKindOfUnclassified(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.Equal(t, "", CodeOf(nil))
}
