package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
)

func cmdProfile(_ context.Context, ses *session, args []string) error {
	if len(args) == 0 {
		return profileList(ses)
	}
	sub, args := args[0], args[1:]
	switch sub {
	case "list", "ls":
		return profileList(ses)

	case "add":
		if err := wantArgs(args, 1, "profile add NAME"); err != nil {
			return err
		}
		p, err := ses.mgr.Create(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(ses.out, "Created profile %q (%s)\n", p.Name, p.ID)
		return nil

	case "rm", "remove", "delete":
		if err := wantArgs(args, 1, "profile rm REF"); err != nil {
			return err
		}
		p, err := ses.mgr.Find(args[0])
		if err != nil {
			return err
		}
		if err := ses.mgr.Delete(p.ID); err != nil {
			return err
		}
		fmt.Fprintf(ses.out, "Deleted profile %q\n", p.Name)
		return nil

	case "rename":
		if err := wantArgs(args, 2, "profile rename REF NAME"); err != nil {
			return err
		}
		p, err := ses.mgr.Find(args[0])
		if err != nil {
			return err
		}
		old := p.Name
		if err := ses.mgr.Rename(p.ID, args[1]); err != nil {
			return err
		}
		fmt.Fprintf(ses.out, "Renamed %q to %q\n", old, p.Name)
		return nil

	case "use", "switch":
		if err := wantArgs(args, 1, "profile use REF"); err != nil {
			return err
		}
		p, err := ses.mgr.Find(args[0])
		if err != nil {
			return err
		}
		if err := ses.mgr.SwitchTo(p.ID); err != nil {
			return err
		}
		fmt.Fprintf(ses.out, "Active profile: %s\n", p.Name)
		return nil

	case "export":
		return profileExport(ses, args)

	case "import":
		return profileImport(ses, args, ses.in)

	case "monitor":
		if err := wantArgs(args, 2, "profile monitor REF INDEX|hide"); err != nil {
			return err
		}
		p, err := ses.mgr.Find(args[0])
		if err != nil {
			return err
		}
		mon, err := parseMonitor(args[1])
		if err != nil {
			return err
		}
		if err := ses.mgr.SetMonitor(p.ID, mon); err != nil {
			return err
		}
		fmt.Fprintf(ses.out, "Profile %q: %s\n", p.Name, monitorLabel(mon))
		return nil
	}
	return fmt.Errorf("unknown profile command %q", sub)
}

func profileList(ses *session) error {
	st := ses.mgr.State()
	w := tabwriter.NewWriter(ses.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "\t#\tNAME\tTOKENS\tMONITOR\tREFRESH\tID")
	for i, p := range st.Profiles {
		mark := ""
		if p.ID == st.ActiveProfile {
			mark = "*"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\t%ds\t%s\n",
			mark, i+1, p.Name, len(p.Tokens), monitorLabel(p.Monitor), p.Style.RefreshSec, p.ID)
	}
	return w.Flush()
}

// parseMonitor accepts a 0-based monitor index, or hide/off/none for a hidden
// profile.
func parseMonitor(s string) (*int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hide", "hidden", "off", "none", "-1":
		return nil, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return nil, fmt.Errorf("invalid monitor %q: want an index from 0 or \"hide\"", s)
	}
	return &n, nil
}

func monitorLabel(m *int) string {
	if m == nil {
		return "hidden"
	}
	return "monitor " + strconv.Itoa(*m)
}
