// Package pricing serves the market material index. The list comes from the
// price collaborator through a 24 hour cache; when both cache and
// collaborator fail, a built-in Hyderabad price set keeps the index alive.
// Callers never see an error from PriceList.
package pricing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ajayprojects/portal/internal/cache"
	"github.com/ajayprojects/portal/pkg/models"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

const cacheKey = "market:prices"

// Fetcher is the collaborator call that refreshes the index.
type Fetcher interface {
	FetchPriceList(ctx context.Context) (*models.MarketPriceList, error)
}

// Service answers price index reads.
type Service struct {
	fetcher Fetcher
	cache   *cache.Cache
	ttl     time.Duration
}

func NewService(fetcher Fetcher, c *cache.Cache, ttl time.Duration) *Service {
	return &Service{fetcher: fetcher, cache: c, ttl: ttl}
}

// PriceList returns the market index: cached copy first, then a live
// refresh, then the built-in fallback. It never fails.
func (s *Service) PriceList(ctx context.Context) *models.MarketPriceList {
	var cached models.MarketPriceList
	if s.cache != nil && s.cache.Get(cacheKey, s.ttl, &cached) {
		return &cached
	}

	if s.fetcher != nil {
		list, err := s.fetcher.FetchPriceList(ctx)
		if err == nil && list != nil && len(list.Categories) > 0 {
			if list.LastUpdated == "" {
				list.LastUpdated = time.Now().Format("2 Jan 2006")
			}
			if s.cache != nil {
				s.cache.Set(cacheKey, list)
			}
			return list
		}
		log.Warn().Err(err).Msg("Price refresh failed, serving fallback index")
	}

	return FallbackPriceList()
}

// TickerText flattens the index into the scrolling ticker line.
func TickerText(list *models.MarketPriceList) string {
	var segments []string
	for _, cat := range list.Categories {
		for _, item := range cat.Items {
			segments = append(segments, fmt.Sprintf("%s %s: ₹%s/%s",
				item.BrandName, item.SpecificType, formatINR(item.PriceWithGST), item.Unit))
		}
	}
	return strings.Join(segments, " • ")
}

// MaterialTotal sums the bill-of-materials line totals exactly.
func MaterialTotal(items []models.MaterialItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(decimal.NewFromFloat(item.TotalPrice))
	}
	return total
}

// AdvanceAmount is the 5% booking advance on a quote total, rounded up to
// the rupee.
func AdvanceAmount(total float64) decimal.Decimal {
	return decimal.NewFromFloat(total).
		Mul(decimal.NewFromInt(5)).
		Div(decimal.NewFromInt(100)).
		Ceil()
}

// formatINR renders a price with Indian-style digit grouping dropped; the
// frontend localizes, the ticker just needs a stable plain number.
func formatINR(v float64) string {
	d := decimal.NewFromFloat(v)
	if d.Equal(d.Truncate(0)) {
		return d.Truncate(0).String()
	}
	return d.StringFixed(2)
}

// FallbackPriceList is the built-in Hyderabad index used when the
// collaborator is unreachable.
func FallbackPriceList() *models.MarketPriceList {
	return &models.MarketPriceList{
		LastUpdated: "Reference rates",
		Categories: []models.PriceCategory{
			{
				Title: "Core Essentials",
				Items: []models.MarketMaterial{
					{BrandName: "UltraTech", SpecificType: "Cement PPC", PriceWithGST: 415, Unit: "bag", Trend: models.TrendStable},
					{BrandName: "Vizag", SpecificType: "TMT 12mm", PriceWithGST: 72400, Unit: "ton", Trend: models.TrendUp},
					{BrandName: "Local", SpecificType: "M-Sand", PriceWithGST: 45, Unit: "cft", Trend: models.TrendStable},
				},
			},
			{
				Title: "Finishing Materials",
				Items: []models.MarketMaterial{
					{BrandName: "Asian Paints", SpecificType: "Royale Emulsion", PriceWithGST: 590, Unit: "Ltr", Trend: models.TrendUp},
					{BrandName: "Aerocon", SpecificType: "AAC Block", PriceWithGST: 4800, Unit: "unit", Trend: models.TrendStable},
				},
			},
			{
				Title: "Electrical & Plumbing",
				Items: []models.MarketMaterial{
					{BrandName: "Finolex", SpecificType: "2.5mm Wire", PriceWithGST: 2150, Unit: "coil", Trend: models.TrendDown},
					{BrandName: "Ashirvad", SpecificType: "CPVC Pipe 1in", PriceWithGST: 385, Unit: "length", Trend: models.TrendStable},
				},
			},
		},
	}
}
