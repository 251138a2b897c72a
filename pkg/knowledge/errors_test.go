package knowledge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTransient_WrapsOriginalError(t *testing.T) {
	base := errors.New("connection reset")
	err := transient("search_knowledge", base)

	assert.True(t, IsTransient(err))
	assert.False(t, IsPermanent(err))
	assert.ErrorIs(t, err, base)
}

func TestIsPermanent_WrapsOriginalError(t *testing.T) {
	base := errors.New("relation does not exist")
	err := permanent("search_knowledge", base)

	assert.True(t, IsPermanent(err))
	assert.False(t, IsTransient(err))
}

func TestTransientPermanent_NilErrorPassesThrough(t *testing.T) {
	assert.NoError(t, transient("op", nil))
	assert.NoError(t, permanent("op", nil))
}

func TestIsTransient_NonClientError(t *testing.T) {
	assert.False(t, IsTransient(errors.New("plain error")))
	assert.False(t, IsPermanent(errors.New("plain error")))
}
