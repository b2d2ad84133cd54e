package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"text/tabwriter"

	"cryptick/internal/instance"
	"cryptick/internal/market"
	"cryptick/internal/prices"
	"cryptick/internal/scheduler"
	"cryptick/internal/ticker"
)

func cmdStatus(_ context.Context, ses *session, args []string) error {
	if err := wantArgs(args, 0, "status"); err != nil {
		return err
	}
	st := ses.mgr.State()
	active := ses.mgr.Active()
	layout := ses.s.Layout()

	w := tabwriter.NewWriter(ses.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Data dir:\t%s\n", layout.Root)
	fmt.Fprintf(w, "State file:\t%s\n", ses.store.Path())
	fmt.Fprintf(w, "Log file:\t%s\n", layout.LogFile())
	fmt.Fprintf(w, "Overlay:\t%s\n", overlayState(layout.Root))
	fmt.Fprintf(w, "Active profile:\t%s (%d tokens, %s, every %ds)\n",
		active.Name, len(active.Tokens), monitorLabel(active.Monitor), active.Style.RefreshSec)
	fmt.Fprintf(w, "Profiles:\t%d\n", len(st.Profiles))
	fmt.Fprintf(w, "Hotkeys:\t%s\n", hotkeyLabel(st.Hotkeys))
	fmt.Fprintf(w, "API:\t%s (strategy %s, timeout %s, retries %d)\n",
		ses.s.APIBaseURL, ses.s.Strategy, ses.s.APITimeout, ses.s.APIRetries)
	if ses.s.RefreshInterval > 0 {
		fmt.Fprintf(w, "Refresh override:\t%s\n", ses.s.RefreshInterval)
	}
	if ses.s.MetricsAddr != "" {
		fmt.Fprintf(w, "Metrics:\thttp://%s/metrics\n", ses.s.MetricsAddr)
	}
	return w.Flush()
}

// overlayState checks the single instance lock.
func overlayState(dir string) string {
	release, err := instance.Acquire(dir)
	switch {
	case errors.Is(err, instance.ErrAlreadyRunning):
		return "running"
	case err != nil:
		return "unknown (" + err.Error() + ")"
	}
	release()
	return "not running"
}

func cmdPrices(ctx context.Context, ses *session, args []string) error {
	fs := ses.subFlags("prices")
	prof := fs.StringP("profile", "p", "", "profile name, id or position (default: active)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	p, err := ses.target(*prof)
	if err != nil {
		return err
	}
	if len(p.Tokens) == 0 {
		fmt.Fprintln(ses.out, ticker.Placeholder)
		return nil
	}

	strategy, err := prices.StrategyByName(ses.s.Strategy)
	if err != nil {
		return err
	}
	fetcher := prices.NewFetcher(ses.api, strategy, prices.WithLogger(ses.log))
	records := fetcher.Fetch(ctx, p.Tokens, nil, scheduler.MinInterval)

	byKey := make(map[string]market.PriceRecord, len(records))
	for _, r := range records {
		byKey[r.Key] = r
	}
	if err := ses.mgr.RecordTokenMeta(records); err != nil {
		ses.log.Warnw("Could not cache token names", "error", err)
	}

	bar := ticker.Build(p, ses.mgr.State().TokenNames, byKey)
	w := tabwriter.NewWriter(ses.out, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "NAME\tPRICE\tCHANGE 5M / 24H\tSTATUS\t")
	for _, it := range bar.Items {
		status := it.Status.String()
		if r := byKey[it.Key]; r.Err != nil {
			status += ": " + r.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", it.Name, it.Price, it.Changes, status)
	}
	return w.Flush()
}

func cmdNetworks(ctx context.Context, ses *session, args []string) error {
	fs := ses.subFlags("networks")
	page := fs.Int("page", 1, "result page")
	if err := fs.Parse(args); err != nil {
		return err
	}
	networks, err := ses.api.Networks(ctx, *page)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(ses.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	for _, n := range networks {
		fmt.Fprintf(w, "%s\t%s\n", n.ID, n.Name)
	}
	if len(networks) == 0 {
		fmt.Fprintln(w, "(none on page "+strconv.Itoa(*page)+")\t")
	}
	return w.Flush()
}
