// Package system runs long-lived components of the API process.
package system

import "context"

// Service is a component with an explicit lifecycle, such as the HTTP
// listener or a background janitor.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
