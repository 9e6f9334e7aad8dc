package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

type estimate struct {
	Value    float64 `json:"value"`
	StdError float64 `json:"std_error"`
}

func TestBigCacheRoundTrip(t *testing.T) {
	c, err := NewBigCache(time.Minute, 8)
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	ctx := context.Background()

	var got estimate
	if err := c.Get(ctx, "bond:1", &got); !errors.Is(err, ErrMiss) {
		t.Fatalf("Get on empty cache = %v, want ErrMiss", err)
	}

	want := estimate{Value: 880.66, StdError: 0.12}
	if err := c.Set(ctx, "bond:1", want, 0); err != nil {
		t.Fatal(err)
	}
	if err := c.Get(ctx, "bond:1", &got); err != nil || got != want {
		t.Errorf("Get = %+v, %v", got, err)
	}
	if ok, _ := c.Exists(ctx, "bond:1"); !ok || c.Len() != 1 {
		t.Errorf("exists = %v len = %d", ok, c.Len())
	}

	if err := c.Delete(ctx, "bond:1", "missing"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := c.Exists(ctx, "bond:1"); ok {
		t.Error("entry still present after delete")
	}
}
