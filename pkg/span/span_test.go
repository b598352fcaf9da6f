package span_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/arborlang/borrowck/pkg/span"
)

func TestSpanString(t *testing.T) {
	assert.Equal(t, "3:4", span.Span{StartLine: 3, StartCol: 4}.String())
	assert.Equal(t, "a.arb:3:4", span.Span{File: "a.arb", StartLine: 3, StartCol: 4}.String())
}

func TestSpanZero(t *testing.T) {
	assert.True(t, span.Span{}.Zero())
	assert.False(t, span.Span{StartLine: 1}.Zero())
}
