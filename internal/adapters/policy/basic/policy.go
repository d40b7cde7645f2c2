// Package basic provides an admission policy that admits everything.
package basic

import (
	"context"

	"github.com/tjfontaine/interview-gateway/internal/core/ports"
)

// Policy implements ports.AdmissionPolicy with no restrictions.
// It is selected when admission control is disabled in configuration.
type Policy struct{}

// NewPolicy creates a new basic policy.
func NewPolicy() *Policy {
	return &Policy{}
}

// TryAdmit always admits.
func (p *Policy) TryAdmit(userID string) bool {
	return true
}

// CheckRequest always allows requests (no rate limiting).
func (p *Policy) CheckRequest(ctx context.Context, req *ports.PolicyRequest) (*ports.PolicyDecision, error) {
	return &ports.PolicyDecision{
		Allow:  true,
		Reason: "admission control disabled",
	}, nil
}
