package config

import "testing"

func TestLoadIncludesPipelineDefaults(t *testing.T) {
	t.Setenv("EMBED_BATCH_SIZE", "")
	t.Setenv("MAX_CONCURRENT_CALLS", "")
	t.Setenv("CACHE_TTL_SECONDS", "")
	t.Setenv("SIMILARITY_FLOOR", "")
	t.Setenv("HISTORY_WINDOW", "")

	cfg := Load()
	if cfg.EmbedBatchSize != 10 {
		t.Fatalf("expected default batch size 10, got %d", cfg.EmbedBatchSize)
	}
	if cfg.MaxConcurrentCalls != 5 {
		t.Fatalf("expected default concurrency cap 5, got %d", cfg.MaxConcurrentCalls)
	}
	if cfg.CacheTTL.Seconds() != 300 {
		t.Fatalf("expected default cache ttl 300s, got %s", cfg.CacheTTL)
	}
	if cfg.SimilarityFloor != 0.25 {
		t.Fatalf("expected default similarity floor 0.25, got %g", cfg.SimilarityFloor)
	}
	if cfg.HistoryWindow != 5 {
		t.Fatalf("expected default history window 5, got %d", cfg.HistoryWindow)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("EMBED_BATCH_SIZE", "25")
	t.Setenv("MAX_CONCURRENT_CALLS", "8")
	t.Setenv("SIMILARITY_FLOOR", "0.4")
	t.Setenv("HEADING_FONT_SCALE", "1.3")

	cfg := Load()
	if cfg.EmbedBatchSize != 25 {
		t.Fatalf("expected batch size override, got %d", cfg.EmbedBatchSize)
	}
	if cfg.MaxConcurrentCalls != 8 {
		t.Fatalf("expected concurrency override, got %d", cfg.MaxConcurrentCalls)
	}
	if cfg.SimilarityFloor != 0.4 {
		t.Fatalf("expected similarity floor override, got %g", cfg.SimilarityFloor)
	}
	if cfg.HeadingFontScale != 1.3 {
		t.Fatalf("expected heading font scale override, got %g", cfg.HeadingFontScale)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero batch size", func(c *Config) { c.EmbedBatchSize = 0 }},
		{"zero concurrency", func(c *Config) { c.MaxConcurrentCalls = 0 }},
		{"negative floor", func(c *Config) { c.SimilarityFloor = -0.1 }},
		{"floor above one", func(c *Config) { c.SimilarityFloor = 1.5 }},
		{"zero top k", func(c *Config) { c.RAGTopK = 0 }},
		{"font scale below one", func(c *Config) { c.HeadingFontScale = 0.9 }},
		{"missing dsn", func(c *Config) { c.PostgresDSN = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Load()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := Load().Validate(); err != nil {
		t.Fatalf("defaults should validate, got %v", err)
	}
}
