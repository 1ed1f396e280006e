package projection

import (
	"sort"

	"github.com/shopspring/decimal"

	v1 "github.com/aevon-lab/completion-aggregator/internal/api/v1"
	"github.com/aevon-lab/completion-aggregator/internal/core/completion"
)

// groupByAggregation buckets rows by canonical aggregation name, keeping only
// the wanted names. Rows within a bucket are ordered by block ID.
func groupByAggregation(rows map[string]completion.Aggregate, wanted map[string]bool) map[string][]v1.AggregateView {
	groups := make(map[string][]v1.AggregateView, len(wanted))
	for name := range wanted {
		groups[name] = []v1.AggregateView{}
	}

	for _, agg := range rows {
		name := completion.NormalizeName(agg.AggregationName)
		if !wanted[name] {
			continue
		}
		groups[name] = append(groups[name], v1.NewAggregateView(agg))
	}

	for _, views := range groups {
		sort.Slice(views, func(i, j int) bool { return views[i].BlockID < views[j].BlockID })
	}
	return groups
}

// summarize rolls one group up. OverallPercent follows the same vacuous
// completion rule as a single aggregate.
func summarize(views []v1.AggregateView) AggregationSummary {
	summary := AggregationSummary{
		Blocks:   len(views),
		Earned:   decimal.Zero,
		Possible: decimal.Zero,
	}
	if len(views) == 0 {
		summary.OverallPercent = completion.PercentOf(decimal.Zero, decimal.Zero)
		return summary
	}

	percentSum := 0.0
	for _, v := range views {
		summary.Earned = summary.Earned.Add(v.Earned)
		summary.Possible = summary.Possible.Add(v.Possible)
		percentSum += v.Percent
		if v.Percent >= 1 {
			summary.Completed++
		}
	}
	summary.MeanPercent = percentSum / float64(len(views))
	summary.OverallPercent = completion.PercentOf(summary.Earned, summary.Possible)
	return summary
}
