package tokens

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimate_Empty(t *testing.T) {
	assert.Equal(t, 0, Estimate(""))
	assert.Equal(t, 0, Estimate("   "))
}

func TestEstimate_WordCount(t *testing.T) {
	assert.Equal(t, 1, Estimate("one"))
	// 4 words * 1.3 = 5.2 -> rounds to 5
	assert.Equal(t, 5, Estimate("one two three four"))
	// 10 words * 1.3 = 13
	assert.Equal(t, 13, Estimate("one two three four five six seven eight nine ten"))
}

func TestEstimate_WhitespaceInsensitive(t *testing.T) {
	a := Estimate("one two three")
	b := Estimate("one\ttwo\n\nthree   ")
	assert.Equal(t, a, b)
}
