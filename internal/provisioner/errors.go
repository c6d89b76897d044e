package provisioner

import "fmt"

// ExitError is returned when a command script exits non-zero.
type ExitError struct {
	Host       string
	Entrypoint string
	Status     int
	Stdout     string
	Stderr     string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s on %s exited with status %d", e.Entrypoint, e.Host, e.Status)
}
