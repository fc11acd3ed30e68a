package tenancy

import (
	"context"
	"testing"
)

func TestOrgIDRoundTrip(t *testing.T) {
	ctx := WithOrgID(context.Background(), "org-123")

	orgID, ok := OrgIDFromContext(ctx)
	if !ok {
		t.Fatal("expected org id to be present")
	}
	if orgID != "org-123" {
		t.Errorf("expected org-123, got %s", orgID)
	}
}

func TestOrgIDMissing(t *testing.T) {
	if _, ok := OrgIDFromContext(context.Background()); ok {
		t.Error("expected no org id on empty context")
	}
}

func TestOrgIDEmptyValue(t *testing.T) {
	ctx := WithOrgID(context.Background(), "")
	if _, ok := OrgIDFromContext(ctx); ok {
		t.Error("empty org id should not count as present")
	}
}
