package search

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/hyperjump/imi/internal/embedcache"
	"github.com/hyperjump/imi/internal/embedding"
)

func BenchmarkSearch_warmCaches(b *testing.B) {
	corpus := make(SliceSource[doc], 1000)
	for i := range corpus {
		corpus[i] = doc{id: strconv.Itoa(i), text: "item number " + strconv.Itoa(i)}
	}
	cfg := docConfig()
	cfg.MaxResults = 10
	cfg.Threshold = -1
	cfg.Items = embedcache.Config{TTL: time.Hour, Capacity: embedcache.Unbounded}

	o, err := New[doc, string](embedding.NewMockEmbedder(384), corpus, cfg)
	if err != nil {
		b.Fatal(err)
	}
	defer o.Close()
	ctx := context.Background()
	if err := o.Initialize(ctx, true); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := o.Search(ctx, "benchmark query"); err != nil {
			b.Fatal(err)
		}
	}
}
