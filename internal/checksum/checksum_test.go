package checksum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSum(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", Sum(nil))
	assert.Len(t, Sum([]byte("model User {}")), 64)
}

func TestSame(t *testing.T) {
	assert.True(t, Same([]byte(`{"a":1}`), []byte(`{"a":1}`)))
	assert.False(t, Same([]byte(`{"a":1}`), []byte(`{"a":2}`)))
}
