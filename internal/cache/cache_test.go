package cache

import (
	"context"
	"testing"
	"time"

	"github.com/Veraticus/estimatch/internal/model"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	tests := []struct {
		name        string
		description string
		total       string
		want        string
	}{
		{name: "lower cases and buckets", description: "10mm Steel Rebar", total: "500", want: "10mm steel rebar_5"},
		{name: "strips punctuation", description: "Steel-Rebar, (10mm)!", total: "99.99", want: "steelrebar 10mm_0"},
		{name: "collapses whitespace", description: "  Copper   wire\t12ga ", total: "1250.50", want: "copper wire 12ga_12"},
		{name: "zero price", description: "Nails", total: "0", want: "nails_0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := model.InvoiceLineItem{Description: tt.description, TotalPrice: decimal.RequireFromString(tt.total)}
			assert.Equal(t, tt.want, Key(item))
		})
	}
}

func TestKeyBucketsCollide(t *testing.T) {
	a := model.InvoiceLineItem{Description: "10mm steel rebar", TotalPrice: decimal.NewFromInt(510)}
	b := model.InvoiceLineItem{Description: "10MM Steel Rebar.", TotalPrice: decimal.NewFromInt(590)}
	c := model.InvoiceLineItem{Description: "10mm steel rebar", TotalPrice: decimal.NewFromInt(610)}

	assert.Equal(t, Key(a), Key(b))
	assert.NotEqual(t, Key(a), Key(c))
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("basic operations", func(t *testing.T) {
		c := NewMemoryStore(0)
		defer func() { _ = c.Close() }()

		_, found := c.Get(ctx, "missing")
		assert.False(t, found)

		entry := model.CachedMatch{EstimateLineItemID: "e1", Confidence: 0.9, Reasoning: "same item"}
		c.Put(ctx, "k1", entry)

		got, found := c.Get(ctx, "k1")
		require.True(t, found)
		assert.Equal(t, entry, got)
		assert.Equal(t, 1, c.Len(ctx))
		assert.Equal(t, map[string]model.CachedMatch{"k1": entry}, c.Snapshot(ctx))

		c.Clear()
		assert.Zero(t, c.Len(ctx))
	})

	t.Run("expiration", func(t *testing.T) {
		c := NewMemoryStore(50 * time.Millisecond)
		defer func() { _ = c.Close() }()

		c.Put(ctx, "k", model.CachedMatch{EstimateLineItemID: "e1", Confidence: 0.7})
		_, found := c.Get(ctx, "k")
		assert.True(t, found)

		time.Sleep(100 * time.Millisecond)
		_, found = c.Get(ctx, "k")
		assert.False(t, found)
		assert.Empty(t, c.Snapshot(ctx))
	})

	t.Run("load merges entries", func(t *testing.T) {
		c := NewMemoryStore(0)
		c.Put(ctx, "a", model.CachedMatch{EstimateLineItemID: "e1"})
		c.Load(map[string]model.CachedMatch{"b": {EstimateLineItemID: "e2"}})
		assert.Equal(t, 2, c.Len(ctx))
		require.NoError(t, c.Close())
		require.NoError(t, c.Close())
	})
}

func TestRedisStoreTreatsErrorsAsMisses(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	s := newRedisStore(client, RedisConfig{Timeout: 100 * time.Millisecond}, nil)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	s.Put(ctx, "k", model.CachedMatch{EstimateLineItemID: "e1"})

	_, found := s.Get(ctx, "k")
	assert.False(t, found)
	assert.Empty(t, s.Snapshot(ctx))
	assert.Zero(t, s.Len(ctx))
	assert.Equal(t, "estimatch:match:", s.prefix)
}
