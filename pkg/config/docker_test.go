package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostFor(t *testing.T) {
	tests := []struct {
		host          string
		containerized bool
		want          string
	}{
		{"localhost", false, "localhost"},
		{"localhost", true, dockerHostGateway},
		{"127.0.0.1", true, dockerHostGateway},
		{"::1", true, dockerHostGateway},
		{"db.internal", true, "db.internal"},
		{"", true, ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, hostFor(tt.host, tt.containerized), "host %q containerized=%v", tt.host, tt.containerized)
	}
}
