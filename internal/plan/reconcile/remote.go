package reconcile

import (
	"context"
	"errors"
	"strings"
)

// ErrNotFound is the only retrieve failure that leads to a create call.
var ErrNotFound = errors.New("remote_plan_not_found")

type RemotePlan struct {
	ID      string
	Product string
	Active  bool
}

// RemoteAPI is the plan endpoint of the billing provider. Retrieve must wrap
// ErrNotFound when the plan does not exist so it can be told apart from other
// failures.
type RemoteAPI interface {
	RetrievePlan(ctx context.Context, id string) (*RemotePlan, error)
	CreatePlan(ctx context.Context, payload Payload) (*RemotePlan, error)
}

// APIVersion is the provider API version, e.g. "2018-02-05" or
// "2024-06-20.acacia". Empty means the account default, treated as a version
// without products.
type APIVersion string

// productsSince is the first API version where plans belong to products.
const productsSince = "2018-02-05"

func (v APIVersion) SupportsProducts() bool {
	s := strings.TrimSpace(string(v))
	if len(s) < len(productsSince) {
		return false
	}
	// ISO dates compare correctly as strings.
	return s[:len(productsSince)] >= productsSince
}
