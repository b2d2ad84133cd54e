package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"cryptick/internal/config"
	"cryptick/internal/market"
	"cryptick/internal/profile"
)

func cmdToken(ctx context.Context, ses *session, args []string) error {
	sub := "list"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		sub, args = args[0], args[1:]
	}

	fs := ses.subFlags("token " + sub)
	prof := fs.StringP("profile", "p", "", "profile name, id or position (default: active)")
	var (
		name, logo   *string
		bold, noSep  *bool
		lookup       *bool
		separatorSet *bool
	)
	switch sub {
	case "add":
		name = fs.String("name", "", "custom display name")
		logo = fs.String("logo", "", "logo image URL")
		bold = fs.Bool("bold", false, "draw the whole item in bold")
		noSep = fs.Bool("no-separator", false, "hide the separator after this item")
		lookup = fs.Bool("lookup", true, "look up the token name and logo on GeckoTerminal")
	case "set":
		logo = fs.String("logo", "", "logo image URL, empty to clear")
		bold = fs.Bool("bold", false, "draw the whole item in bold")
		separatorSet = fs.Bool("separator", true, "show the separator after this item")
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	args = fs.Args()

	p, err := ses.target(*prof)
	if err != nil {
		return err
	}

	switch sub {
	case "list", "ls":
		return tokenList(ses, p)

	case "add":
		if err := wantArgs(args, 2, "token add NETWORK ADDRESS [--name N] [--logo URL] [--bold] [--no-separator]"); err != nil {
			return err
		}
		e := market.TickerEntry{
			NetworkID:     args[0],
			Address:       args[1],
			CustomName:    *name,
			LogoURL:       strings.TrimSpace(*logo),
			Bold:          *bold,
			HideSeparator: *noSep,
		}
		if err := ses.mgr.AddToken(p.ID, e); err != nil {
			return err
		}
		key := market.Key(e.NetworkID, e.Address)
		if *lookup {
			ses.lookupToken(ctx, key, e.NetworkID, e.Address)
		}
		fmt.Fprintf(ses.out, "Added %s to %q\n", key, p.Name)
		return nil

	case "rm", "remove":
		if err := wantArgs(args, 1, "token rm REF"); err != nil {
			return err
		}
		key, err := tokenKey(p, args[0])
		if err != nil {
			return err
		}
		if err := ses.mgr.RemoveToken(p.ID, key); err != nil {
			return err
		}
		fmt.Fprintf(ses.out, "Removed %s from %q\n", key, p.Name)
		return nil

	case "move", "mv":
		if err := wantArgs(args, 2, "token move REF up|down|top|bottom|DELTA"); err != nil {
			return err
		}
		key, err := tokenKey(p, args[0])
		if err != nil {
			return err
		}
		delta, err := parseDelta(args[1], len(p.Tokens))
		if err != nil {
			return err
		}
		if err := ses.mgr.MoveToken(p.ID, key, delta); err != nil {
			return err
		}
		return tokenList(ses, p)

	case "rename":
		if len(args) < 1 || len(args) > 2 {
			return fmt.Errorf("usage: cryptick token rename REF [NAME]")
		}
		key, err := tokenKey(p, args[0])
		if err != nil {
			return err
		}
		custom := ""
		if len(args) == 2 {
			custom = args[1]
		}
		if err := ses.mgr.UpdateToken(p.ID, key, func(t *market.TickerEntry) { t.CustomName = custom }); err != nil {
			return err
		}
		if strings.TrimSpace(custom) == "" {
			fmt.Fprintf(ses.out, "Cleared custom name of %s\n", key)
		} else {
			fmt.Fprintf(ses.out, "Renamed %s to %q\n", key, strings.TrimSpace(custom))
		}
		return nil

	case "set":
		if err := wantArgs(args, 1, "token set REF [--logo URL] [--bold] [--separator=false]"); err != nil {
			return err
		}
		key, err := tokenKey(p, args[0])
		if err != nil {
			return err
		}
		err = ses.mgr.UpdateToken(p.ID, key, func(t *market.TickerEntry) {
			if fs.Changed("logo") {
				t.LogoURL = strings.TrimSpace(*logo)
			}
			if fs.Changed("bold") {
				t.Bold = *bold
			}
			if fs.Changed("separator") {
				t.HideSeparator = !*separatorSet
			}
		})
		if err != nil {
			return err
		}
		return tokenList(ses, p)
	}
	return fmt.Errorf("unknown token command %q", sub)
}

// lookupToken caches the name and logo GeckoTerminal reports for a new token.
// Failures only warn: the token is already saved and the overlay fills the
// name in on its first refresh.
func (ses *session) lookupToken(ctx context.Context, key, network, addr string) {
	ctx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	q, err := ses.api.TokenInfo(ctx, strings.ToLower(strings.TrimSpace(network)), market.NormalizeAddress(addr))
	if err != nil {
		ses.log.Warnw("Token lookup failed", "token", key, "error", err)
		fmt.Fprintf(ses.out, "warning: could not look up %s: %v\n", key, err)
		return
	}
	rec := market.PriceRecord{Key: key, Name: q.Name, Symbol: q.Symbol, ImageURL: q.ImageURL, Status: market.StatusOK}
	if err := ses.mgr.RecordTokenMeta([]market.PriceRecord{rec}); err != nil {
		fmt.Fprintf(ses.out, "warning: could not save token name: %v\n", err)
		return
	}
	fmt.Fprintf(ses.out, "Found %s (%s)\n", q.Name, q.Symbol)
}

func tokenList(ses *session, p *config.Profile) error {
	st := ses.mgr.State()
	w := tabwriter.NewWriter(ses.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Profile: %s\n", p.Name)
	fmt.Fprintln(w, "#\tKEY\tNAME\tCUSTOM\tFLAGS")
	for i, t := range p.Tokens {
		var flags []string
		if t.Bold {
			flags = append(flags, "bold")
		}
		if t.HideSeparator {
			flags = append(flags, "no-separator")
		}
		if t.LogoURL != "" {
			flags = append(flags, "logo")
		}
		name := st.TokenNames[t.Key()]
		if name == "" {
			name = market.ShortAddress(t.Address)
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n", i+1, t.Key(), name, t.CustomName, strings.Join(flags, ","))
	}
	if len(p.Tokens) == 0 {
		fmt.Fprintln(w, "-\t(no tokens)\t\t\t")
	}
	return w.Flush()
}

// tokenKey resolves a token reference: its 1-based position, its
// network:address key or its custom name.
func tokenKey(p *config.Profile, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 1 || n > len(p.Tokens) {
			return "", fmt.Errorf("%w [#%d]", profile.ErrTokenNotFound, n)
		}
		return p.Tokens[n-1].Key(), nil
	}
	if network, addr, ok := strings.Cut(ref, ":"); ok {
		return market.Key(network, addr), nil
	}
	for _, t := range p.Tokens {
		if t.CustomName != "" && strings.EqualFold(t.CustomName, ref) {
			return t.Key(), nil
		}
	}
	return "", fmt.Errorf("%w [%s]", profile.ErrTokenNotFound, ref)
}

func parseDelta(s string, n int) (int, error) {
	switch strings.ToLower(s) {
	case "up":
		return -1, nil
	case "down":
		return 1, nil
	case "top":
		return -n, nil
	case "bottom":
		return n, nil
	}
	d, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid move %q", s)
	}
	return d, nil
}
