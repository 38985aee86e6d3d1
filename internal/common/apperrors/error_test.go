package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDerivation(t *testing.T) {
	ErrBase := New("base error")
	assert.Equal(t, "base error", ErrBase.Error())
	assert.ErrorIs(t, ErrBase, ErrBase)

	ErrChild := ErrBase.New("child")
	assert.Equal(t, "child", ErrChild.Error())
	assert.ErrorIs(t, ErrChild, ErrBase)
	assert.False(t, errors.Is(ErrBase, ErrChild))

	ErrOther := New("other")
	assert.False(t, errors.Is(ErrChild, ErrOther))
}

func TestAttachedCauses(t *testing.T) {
	ErrBase := New("base")
	ErrChild := ErrBase.New("child")
	ErrA := New("a").Msg("a msg")
	goErr := fmt.Errorf("io failure")

	wrapped := ErrChild.Err(ErrA, goErr)
	assert.Equal(t, "child", wrapped.Error())
	assert.ErrorIs(t, wrapped, ErrBase)
	assert.ErrorIs(t, wrapped, ErrChild)
	assert.ErrorIs(t, wrapped, ErrA)
	assert.ErrorIs(t, wrapped, goErr)
	assert.Len(t, wrapped.UnwrapAll(), 3)

	withMsg := ErrChild.MsgErr("custom", goErr)
	assert.Equal(t, "custom", withMsg.Error())
	assert.ErrorIs(t, withMsg, ErrChild)
	assert.ErrorIs(t, withMsg, goErr)
}

func TestStatusCodeAndFormatting(t *testing.T) {
	ErrBase := New("tool error").SetStatusCode(http.StatusBadRequest)
	ErrChild := ErrBase.New("invalid args")
	assert.Equal(t, http.StatusBadRequest, ErrChild.StatusCode())
	assert.Equal(t, http.StatusBadRequest, ErrChild.Msg("x").StatusCode())

	// builders return copies
	changed := ErrChild.SetStatusCode(http.StatusConflict)
	assert.Equal(t, http.StatusBadRequest, ErrChild.StatusCode())
	assert.Equal(t, http.StatusConflict, changed.StatusCode())

	assert.Equal(t, "pre: invalid args: post", ErrChild.Prefix("pre").Suffix("post").Error())

	cause := errors.New("missing property 'u'")
	expanded := ErrChild.SetExpandError(true).Err(cause)
	assert.Equal(t, "invalid args; missing property 'u'", expanded.ErrorAll())
	assert.Equal(t, "invalid args", ErrChild.Err(cause).ErrorAll())
}
