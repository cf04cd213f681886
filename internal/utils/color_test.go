package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextColor_EmptyUsage(t *testing.T) {
	assert.Equal(t, CategoryPalette[0], NextColor(nil))
}

func TestNextColor_SkipsUsedColors(t *testing.T) {
	used := []string{CategoryPalette[0], CategoryPalette[1]}
	assert.Equal(t, CategoryPalette[2], NextColor(used))
}

func TestNextColor_IgnoresUnknownColors(t *testing.T) {
	assert.Equal(t, CategoryPalette[0], NextColor([]string{"#123456"}))
}

func TestNextColor_CyclesWhenExhausted(t *testing.T) {
	used := make([]string, len(CategoryPalette))
	copy(used, CategoryPalette)

	got := NextColor(used)
	assert.Equal(t, CategoryPalette[len(used)%len(CategoryPalette)], got)
}
