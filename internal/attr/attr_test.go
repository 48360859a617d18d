package attr

import (
	"context"
	"errors"
	"testing"
)

func TestExtractCorrelationID(t *testing.T) {
	ctx := WithCorrelationID(context.Background(), "abc-123")
	if got := ExtractCorrelationID(ctx).Value.String(); got != "abc-123" {
		t.Errorf("ExtractCorrelationID() = %q", got)
	}
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("expected empty correlation id, got %q", got)
	}
}

func TestError(t *testing.T) {
	if got := Error(errors.New("boom")); got.Key != "error" || got.Value.String() != "boom" {
		t.Errorf("Error() = %v", got)
	}
	if got := Error(nil); got.Value.String() != "" {
		t.Errorf("Error(nil) = %v", got)
	}
}
