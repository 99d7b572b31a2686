package config

import (
	"os"
	"sync"
)

// dockerHostGateway reaches the host machine from inside a container.
const dockerHostGateway = "host.docker.internal"

var (
	dockerEnvPath = "/.dockerenv"

	inContainerOnce sync.Once
	inContainer     bool
)

// InContainer reports whether the process runs inside a Docker container.
func InContainer() bool {
	inContainerOnce.Do(func() {
		_, err := os.Stat(dockerEnvPath)
		inContainer = err == nil
	})
	return inContainer
}

// hostFor rewrites loopback addresses to the Docker host gateway when the
// service runs in a container, so a Postgres or Redis on the developer's
// machine stays reachable.
func hostFor(host string, containerized bool) string {
	if !containerized {
		return host
	}
	switch host {
	case "localhost", "127.0.0.1", "::1":
		return dockerHostGateway
	}
	return host
}
