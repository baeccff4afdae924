package cache

import (
	"context"
	"testing"
)

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewTranslationCache(nil, "Simplified Chinese")

	if err := c.EnsureSchema(ctx); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.Get(ctx, "こんにちは"); ok {
		t.Fatal("empty cache reported a hit")
	}
	if err := c.Set(ctx, "こんにちは", "你好"); err != nil {
		t.Fatal(err)
	}
	if v, ok := c.Get(ctx, "こんにちは"); !ok || v != "你好" {
		t.Fatalf("Get = %q, %v", v, ok)
	}
	if err := c.Preload(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestSetBatch(t *testing.T) {
	ctx := context.Background()
	c := NewTranslationCache(nil, "Simplified Chinese")

	if err := c.SetBatch(ctx, map[string]string{"一": "1", "二": "2"}); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	if v, _ := c.Get(ctx, "二"); v != "2" {
		t.Fatalf("Get = %q", v)
	}
}

func TestLanguagesDoNotCollide(t *testing.T) {
	ctx := context.Background()
	zh := NewTranslationCache(nil, "Simplified Chinese")
	en := NewTranslationCache(nil, "English")

	if zh.key("はい") == en.key("はい") {
		t.Fatal("keys for different languages collide")
	}
	zh.Set(ctx, "はい", "是")
	if _, ok := en.Get(ctx, "はい"); ok {
		t.Fatal("separate caches share entries")
	}
}
