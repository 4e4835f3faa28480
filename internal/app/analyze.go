package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"entry-signals/internal/analysis"
)

// Analyze runs the pipeline once for the given assets and prints a report.
func (a *App) Analyze(ctx context.Context, opts AnalyzeOptions) error {
	assets := opts.Assets
	if len(assets) == 0 {
		assets = a.Config.Analysis.Watchlist
	}
	if len(assets) == 0 {
		return errors.New("no assets given and analysis.watchlist is empty")
	}
	if opts.Price > 0 && len(assets) > 1 {
		return errors.New("--price only applies to a single asset")
	}

	comps := a.newComponents()

	results := make([]<-chan analysis.IndicatorSet, 0, len(assets))
	for _, asset := range assets {
		price := opts.Price
		if price <= 0 {
			fetched, err := comps.client.FetchPrice(ctx, asset)
			if err != nil {
				a.Logger.Warn().Err(err).Str("asset", asset).Msg("skip asset, current price unavailable")
				continue
			}
			price = fetched
		}
		results = append(results, comps.analyzer.Analyze(ctx, asset, price))
	}
	if len(results) == 0 {
		return errors.New("no asset could be priced")
	}

	sets := make([]analysis.IndicatorSet, 0, len(results))
	for _, ch := range results {
		sets = append(sets, <-ch)
	}

	printReport(sets)
	return nil
}

func printReport(sets []analysis.IndicatorSet) {
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Asset\tPrice\tRSI\tMACD\tTrend\tQuality\tScore\tSignals\tSource")
	for _, set := range sets {
		fmt.Fprintf(
			writer,
			"%s\t%.4f\t%.1f\t%.4f\t%s\t%s\t%.3f\t%d\t%s\n",
			set.Asset,
			set.CurrentPrice,
			set.RSI,
			set.MACD,
			set.Trend,
			set.Quality,
			set.Score,
			len(set.Signals),
			set.Source,
		)
	}
	writer.Flush()

	for _, set := range sets {
		if len(set.Signals) == 0 {
			continue
		}
		fmt.Fprintf(os.Stdout, "\n%s:\n", set.Asset)
		for _, sig := range set.Signals {
			fmt.Fprintf(os.Stdout, "  %-24s %-12s conf=%.2f target=%.4f stop=%.4f  %s\n",
				sig.Technique, sig.Strength, sig.Confidence, sig.Target, sig.Stop, sig.Rationale)
		}
	}
}
