package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteKey(t *testing.T) {
	assert.Equal(t, "mumbai->pune", RouteKey(" Mumbai", "PUNE "))
	assert.Equal(t, "*->pune", RouteKey("", "Pune"))
	assert.Equal(t, "*->*", RouteKey("", " "))
}
