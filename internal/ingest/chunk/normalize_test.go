package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_ConvertsCRLFAndCR(t *testing.T) {
	assert.Equal(t, "a\nb\nc", Normalize("a\r\nb\rc"))
}

func TestNormalize_TrimsTrailingWhitespace(t *testing.T) {
	assert.Equal(t, "a\nb", Normalize("a  \nb\t"))
}

func TestNormalize_Empty(t *testing.T) {
	assert.Equal(t, "", Normalize(""))
}
