package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "dev", (&Context{}).String())
	assert.Equal(t, "v1.2.0", (&Context{Version: "v1.2.0"}).String())
	assert.Equal(t, "v1.2.0 (built 2026-08-01)",
		(&Context{Version: "v1.2.0", BuildDate: "2026-08-01"}).String())
}
