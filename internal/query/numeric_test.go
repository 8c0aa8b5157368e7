package query_test

import (
	"context"
	"testing"
	"time"

	"github.com/HariharanV1992/CrawlChat-sub000/internal/logger"
	"github.com/HariharanV1992/CrawlChat-sub000/internal/query"
)

func memoryCache(t *testing.T, ttl time.Duration) *query.NumericContextCache {
	t.Helper()
	return query.NewNumericContextCache(nil, ttl, logger.NewNoop())
}

func TestCaptureResponseExtractsLabelledAmounts(t *testing.T) {
	t.Parallel()

	cache := memoryCache(t, time.Minute)
	ctx := context.Background()

	cache.CaptureResponse(ctx, "s1", "What is my salary breakdown?",
		"Your take-home salary is ₹1,144,180 per year after deductions. The gross salary comes to ₹1,500,000.")

	if v, ok := cache.Get(ctx, "s1", query.KeyTakeHomeSalary); !ok || v != "1144180" {
		t.Errorf("take-home = %q ok=%v, want 1144180", v, ok)
	}
	if v, ok := cache.Get(ctx, "s1", query.KeyGrossSalary); !ok || v != "1500000" {
		t.Errorf("gross = %q ok=%v, want 1500000", v, ok)
	}
	if v, ok := cache.Get(ctx, "s1", query.KeyLastQuery); !ok || v != "What is my salary breakdown?" {
		t.Errorf("last query = %q ok=%v", v, ok)
	}
}

func TestCaptureResponseCurrencyAgnostic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	cases := []struct {
		name     string
		response string
		want     string
	}{
		{"dollar", "Your take-home pay would be $85,000.50 annually.", "85000.50"},
		{"euro", "The take home income is €42,000 net.", "42000"},
		{"no symbol", "Estimated take-home salary of 95,000 after tax.", "95000"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cache := memoryCache(t, time.Minute)
			cache.CaptureResponse(ctx, "s1", "q", tc.response)
			if v, ok := cache.Get(ctx, "s1", query.KeyTakeHomeSalary); !ok || v != tc.want {
				t.Errorf("take-home = %q ok=%v, want %s", v, ok, tc.want)
			}
		})
	}
}

func TestCaptureResponseIgnoresUnlabelledNumbers(t *testing.T) {
	t.Parallel()

	cache := memoryCache(t, time.Minute)
	ctx := context.Background()

	cache.CaptureResponse(ctx, "s1", "q", "The company shipped 1,200,000 units in 2023.")
	if _, ok := cache.Get(ctx, "s1", query.KeyTakeHomeSalary); ok {
		t.Error("unlabelled figure must not be cached as a salary")
	}
}

func TestShortcutMultiYear(t *testing.T) {
	t.Parallel()

	cache := memoryCache(t, time.Minute)
	ctx := context.Background()

	cache.CaptureResponse(ctx, "s1", "What is my take-home salary?",
		"Your take-home salary is ₹1,144,180 per year.")

	answer, ok := cache.TryShortcut(ctx, "s1", "What is my take-home salary? And for 5 years?")
	if !ok {
		t.Fatal("expected a shortcut answer")
	}
	want := "The take-home salary for 5 years would be ₹5,720,900 (₹1,144,180 × 5)."
	if answer != want {
		t.Errorf("shortcut answer = %q, want %q", answer, want)
	}
}

func TestShortcutMonthly(t *testing.T) {
	t.Parallel()

	cache := memoryCache(t, time.Minute)
	ctx := context.Background()

	cache.CaptureResponse(ctx, "s1", "q", "Your take-home salary is ₹1,200,000 per year.")

	answer, ok := cache.TryShortcut(ctx, "s1", "How much is that monthly?")
	if !ok {
		t.Fatal("expected a shortcut answer")
	}
	want := "The take-home salary per month would be ₹100,000 (₹1,200,000 ÷ 12)."
	if answer != want {
		t.Errorf("shortcut answer = %q, want %q", answer, want)
	}
}

func TestShortcutFallsBackToGross(t *testing.T) {
	t.Parallel()

	cache := memoryCache(t, time.Minute)
	ctx := context.Background()

	cache.CaptureResponse(ctx, "s1", "q", "The gross salary is $60,000 per year.")

	answer, ok := cache.TryShortcut(ctx, "s1", "And over 3 years?")
	if !ok {
		t.Fatal("expected a shortcut answer from the gross figure")
	}
	want := "The gross salary for 3 years would be $180,000 ($60,000 × 3)."
	if answer != want {
		t.Errorf("shortcut answer = %q, want %q", answer, want)
	}
}

func TestShortcutRequiresCachedBase(t *testing.T) {
	t.Parallel()

	cache := memoryCache(t, time.Minute)
	if _, ok := cache.TryShortcut(context.Background(), "s1", "How much in 5 years?"); ok {
		t.Error("shortcut must not fire without a cached base figure")
	}
}

func TestShortcutRequiresPeriod(t *testing.T) {
	t.Parallel()

	cache := memoryCache(t, time.Minute)
	ctx := context.Background()
	cache.CaptureResponse(ctx, "s1", "q", "Your take-home salary is ₹1,144,180 per year.")

	if _, ok := cache.TryShortcut(ctx, "s1", "What deductions apply?"); ok {
		t.Error("shortcut must not fire without a year span or monthly marker")
	}
}

func TestNumericCacheExpiry(t *testing.T) {
	t.Parallel()

	cache := memoryCache(t, 10*time.Millisecond)
	ctx := context.Background()

	cache.Set(ctx, "s1", query.KeyTakeHomeSalary, "1000")
	time.Sleep(30 * time.Millisecond)

	if _, ok := cache.Get(ctx, "s1", query.KeyTakeHomeSalary); ok {
		t.Error("expired entry must miss")
	}
	// A fresh entry survives the sweep; only expired ones are counted.
	cache.Set(ctx, "s1", query.KeyGrossSalary, "2000")
	if removed := cache.Sweep(); removed != 0 {
		t.Errorf("sweep removed %d fresh entries", removed)
	}
	if _, ok := cache.Get(ctx, "s1", query.KeyGrossSalary); !ok {
		t.Error("fresh entry lost")
	}
}

func TestNumericCacheSweepCounts(t *testing.T) {
	t.Parallel()

	cache := memoryCache(t, 10*time.Millisecond)
	ctx := context.Background()
	cache.Set(ctx, "s1", query.KeyTakeHomeSalary, "1000")
	cache.Set(ctx, "s2", query.KeyTakeHomeSalary, "2000")
	time.Sleep(30 * time.Millisecond)

	if removed := cache.Sweep(); removed != 2 {
		t.Errorf("Sweep() = %d, want 2", removed)
	}
}

func TestNumericCachePurge(t *testing.T) {
	t.Parallel()

	cache := memoryCache(t, time.Minute)
	ctx := context.Background()

	cache.CaptureResponse(ctx, "s1", "q", "Your take-home salary is ₹1,144,180 per year.")
	cache.CaptureResponse(ctx, "s2", "q", "Your take-home salary is ₹900,000 per year.")

	cache.Purge(ctx, "s1")

	if _, ok := cache.Get(ctx, "s1", query.KeyTakeHomeSalary); ok {
		t.Error("purged session still has values")
	}
	if _, ok := cache.Get(ctx, "s2", query.KeyTakeHomeSalary); !ok {
		t.Error("purge leaked into another session")
	}
}
