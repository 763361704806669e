package pricing

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ajayprojects/portal/internal/cache"
	"github.com/ajayprojects/portal/pkg/models"
)

type fakeFetcher struct {
	list  *models.MarketPriceList
	err   error
	calls int
}

func (f *fakeFetcher) FetchPriceList(_ context.Context) (*models.MarketPriceList, error) {
	f.calls++
	return f.list, f.err
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	c, err := cache.New(16, "")
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestPriceListCachesRefresh(t *testing.T) {
	f := &fakeFetcher{list: &models.MarketPriceList{
		LastUpdated: "today",
		Categories:  []models.PriceCategory{{Title: "Core Essentials", Items: []models.MarketMaterial{{BrandName: "UltraTech"}}}},
	}}
	s := NewService(f, newTestCache(t), 24*time.Hour)

	got := s.PriceList(context.Background())
	if got.Categories[0].Title != "Core Essentials" {
		t.Fatalf("unexpected list: %+v", got)
	}
	s.PriceList(context.Background())
	if f.calls != 1 {
		t.Errorf("fetcher called %d times, want 1 (second read from cache)", f.calls)
	}
}

func TestPriceListFallsBackOnFailure(t *testing.T) {
	f := &fakeFetcher{err: errors.New("model overloaded")}
	s := NewService(f, newTestCache(t), 24*time.Hour)

	got := s.PriceList(context.Background())
	if got == nil || len(got.Categories) == 0 {
		t.Fatal("fallback index must never be empty")
	}
	if got.Categories[0].Title != "Core Essentials" {
		t.Errorf("first fallback category = %q", got.Categories[0].Title)
	}
	if len(got.Categories) < 3 {
		t.Errorf("fallback has %d categories, want at least 3", len(got.Categories))
	}
}

func TestTickerText(t *testing.T) {
	text := TickerText(FallbackPriceList())
	for _, want := range []string{"UltraTech Cement PPC: ₹415/bag", "Vizag TMT 12mm: ₹72400/ton", " • "} {
		if !strings.Contains(text, want) {
			t.Errorf("ticker missing %q in %q", want, text)
		}
	}
}

func TestMaterialTotalExact(t *testing.T) {
	items := []models.MaterialItem{
		{TotalPrice: 0.1},
		{TotalPrice: 0.2},
	}
	if got := MaterialTotal(items); got.String() != "0.3" {
		t.Errorf("total = %s, want 0.3", got)
	}
}

func TestAdvanceAmount(t *testing.T) {
	cases := []struct {
		total float64
		want  string
	}{
		{84000, "4200"},
		{84010, "4201"}, // 4200.5 rounds up
		{100, "5"},
	}
	for _, tc := range cases {
		if got := AdvanceAmount(tc.total); got.String() != tc.want {
			t.Errorf("AdvanceAmount(%v) = %s, want %s", tc.total, got, tc.want)
		}
	}
}
