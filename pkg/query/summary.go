package query

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// NoMatchSentence is the only bullet emitted for an empty selection.
const NoMatchSentence = "No items match the current filters."

// Summarize turns query results into short human-readable bullets. The
// output depends only on its arguments.
func Summarize(k KPIs, brands []BrandShare, bands []Band) []string {
	if k.Products <= 0 {
		return []string{NoMatchSentence}
	}

	out := []string{
		fmt.Sprintf("Avg price ₹%s, avg MRP ₹%s, avg discount %.2f%% across %s items.",
			money(k.AvgPrice), money(k.AvgMRP), k.AvgDiscountPct, humanize.Comma(k.Products)),
		fmt.Sprintf("%s items are at MRP (0%% discount).", humanize.Comma(k.NoDiscountItems)),
	}

	if len(brands) > 0 {
		b := brands[0]
		out = append(out, fmt.Sprintf("Top brand: %s with %s items (~%.2f%%).",
			b.Brand, humanize.Comma(b.Items), b.SharePct))
	}

	if len(bands) > 0 {
		var total int64
		largest := bands[0]
		for _, b := range bands {
			total += b.Items
			if b.Items > largest.Items {
				largest = b
			}
		}
		if total == 0 {
			total = 1
		}
		out = append(out, fmt.Sprintf("Largest discount band: %s at %s items (~%.1f%%).",
			largest.Band, humanize.Comma(largest.Items), 100*float64(largest.Items)/float64(total)))
	}
	return out
}

func money(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}
