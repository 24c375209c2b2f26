package agentkb_test

import (
	"errors"
	"testing"

	"github.com/iamtutumo/agentkb"
	"github.com/stretchr/testify/assert"
)

func TestErrorf(t *testing.T) {
	t.Parallel()

	err := agentkb.Errorf(agentkb.ENOTFOUND, "session %q not found", "test")

	assert.Equal(t, agentkb.ENOTFOUND, agentkb.ErrorCode(err))
	assert.Equal(t, "session \"test\" not found", agentkb.ErrorMessage(err))
}

func TestErrorCode_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, agentkb.ErrorCode(nil))
}

func TestErrorCode_NonApplicationError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, agentkb.EINTERNAL, agentkb.ErrorCode(errors.New("boom")))
}

func TestErrorMessage_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, agentkb.ErrorMessage(nil))
}
