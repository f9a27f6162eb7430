package httpapi

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"
)

func TestJoinContexts_CancelsWhenEitherDone(t *testing.T) {
	a, ac := context.WithCancel(context.Background())
	b, bc := context.WithCancel(context.Background())
	defer bc()
	j, cancelJ := joinContexts(a, b)
	defer cancelJ()
	ac()
	select {
	case <-j.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("joined context did not cancel when first parent canceled")
	}
}

func TestRequestContextFollowsBaseContext(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	SetBaseContext(base)
	defer SetBaseContext(nil)

	r := httptest.NewRequest("GET", "/", nil)
	ctx, done := requestContext(r, 0)
	defer done()
	if canceled(r) {
		t.Fatal("request reported canceled before shutdown")
	}
	cancel()
	select {
	case <-ctx.Done():
	case <-time.After(500 * time.Millisecond):
		t.Fatal("request context not canceled with base context")
	}
	if !canceled(r) {
		t.Fatal("canceled() = false after base context canceled")
	}
}

func TestRequestContextTimeout(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	ctx, done := requestContext(r, 10*time.Millisecond)
	defer done()
	select {
	case <-ctx.Done():
		if ctx.Err() != context.DeadlineExceeded {
			t.Fatalf("err=%v", ctx.Err())
		}
	case <-time.After(time.Second):
		t.Fatal("timeout not applied")
	}
}
