package basic

import (
	"context"
	"testing"

	"github.com/tjfontaine/interview-gateway/internal/core/ports"
)

// Verify interface compliance
var _ ports.AdmissionPolicy = (*Policy)(nil)

func TestCheckRequest_AlwaysAllows(t *testing.T) {
	policy := NewPolicy()
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		decision, err := policy.CheckRequest(ctx, &ports.PolicyRequest{UserID: "user-1", Operation: "start"})
		if err != nil {
			t.Fatalf("CheckRequest failed: %v", err)
		}
		if !decision.Allow {
			t.Fatalf("call %d: expected decision.Allow to be true", i)
		}
		if decision.RateLimitInfo != nil {
			t.Fatal("basic policy should not report rate limit info")
		}
	}
}

func TestCheckRequest_NilRequest(t *testing.T) {
	policy := NewPolicy()

	decision, err := policy.CheckRequest(context.Background(), nil)
	if err != nil {
		t.Fatalf("CheckRequest failed: %v", err)
	}
	if !decision.Allow {
		t.Error("Expected decision.Allow to be true even with nil request")
	}
}

func TestTryAdmit(t *testing.T) {
	policy := NewPolicy()
	for _, user := range []string{"", "user-1", "user-1", "user-1", "user-1", "user-1", "user-1"} {
		if !policy.TryAdmit(user) {
			t.Fatalf("TryAdmit(%q) = false, want true", user)
		}
	}
}
