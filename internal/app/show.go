package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"
)

// Show prints recent analysis snapshots.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show snapshots")
	}
	if closeStore != nil {
		defer closeStore()
	}

	snapshots, err := store.ListRecentSnapshots(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		fmt.Fprintln(os.Stdout, "no snapshots found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tAsset\tPrice\tRSI\tTrend\tQuality\tScore\tSignals\tSynthetic")

	for _, snapshot := range snapshots {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%s\t%s\t%d\t%t\n",
			snapshot.Bucket.UTC().Format(time.RFC3339),
			snapshot.Asset,
			snapshot.Price.StringFixed(4),
			snapshot.RSI.StringFixed(1),
			snapshot.Trend,
			snapshot.Quality,
			snapshot.Score.StringFixed(3),
			snapshot.SignalCount,
			snapshot.Synthetic,
		)
	}

	writer.Flush()
	return nil
}
