package digest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromString_Deterministic(t *testing.T) {
	a := FromString("const x = 1;")
	b := FromString("const x = 1;")

	assert.Equal(t, a, b, "identical content must hash identically")
}

func TestFromString_FixedLength(t *testing.T) {
	inputs := []string{"", "a", "const x = 1;", string(make([]byte, 1<<16))}

	for _, in := range inputs {
		assert.Len(t, FromString(in), 16)
	}
}

func TestFromString_DistinguishesContent(t *testing.T) {
	assert.NotEqual(t, FromString("const x = 1;"), FromString("const x = 2;"))
	assert.NotEqual(t, FromString(""), FromString(" "))
}
