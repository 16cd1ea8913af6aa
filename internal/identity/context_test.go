package identity

import (
	"context"
	"testing"
)

func TestUserContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	if _, ok := UserFromContext(ctx); ok {
		t.Fatal("empty context must not yield a user")
	}

	ctx = ContextWithUser(ctx, &UserRecord{ID: 5})
	user, ok := UserFromContext(ctx)
	if !ok || user.ID != 5 {
		t.Fatalf("unexpected user: %+v ok=%v", user, ok)
	}
}

func TestTokenContextRoundTrip(t *testing.T) {
	ctx := ContextWithToken(context.Background(), "abc")
	token, ok := TokenFromContext(ctx)
	if !ok || token != "abc" {
		t.Fatalf("unexpected token: %q ok=%v", token, ok)
	}

	if _, ok := TokenFromContext(ContextWithToken(context.Background(), "")); ok {
		t.Fatal("empty token must not be stored")
	}
}
