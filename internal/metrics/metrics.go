// Package metrics holds the Prometheus collectors used across the registry.
package metrics

const namespace = "starregistry"

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
