package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"cryptick/internal/config"
	"cryptick/internal/market"
	"cryptick/internal/paths"
)

// profileDoc is the shareable YAML form of a profile. IDs are not exported;
// an import always creates a new profile.
type profileDoc struct {
	Name    string     `yaml:"name"`
	Monitor *int       `yaml:"monitor,omitempty"`
	Style   styleDoc   `yaml:"style"`
	Tokens  []tokenDoc `yaml:"tokens"`
}

type styleDoc struct {
	Opacity        float64 `yaml:"opacity"`
	FontFamily     string  `yaml:"font_family"`
	FontPx         int     `yaml:"font_px"`
	FontColor      string  `yaml:"font_color"`
	ClickThrough   bool    `yaml:"click_through"`
	ShowLogo       bool    `yaml:"show_logo"`
	RefreshSec     int     `yaml:"refresh_sec"`
	UseCustomNames bool    `yaml:"use_custom_names"`
	Separator      string  `yaml:"separator_text"`
	BoldName       bool    `yaml:"bold_name"`
	BoldPrice      bool    `yaml:"bold_price"`
	BoldChanges    bool    `yaml:"bold_changes"`
}

type tokenDoc struct {
	NetworkID     string `yaml:"network"`
	Address       string `yaml:"address"`
	CustomName    string `yaml:"name,omitempty"`
	LogoURL       string `yaml:"logo,omitempty"`
	HideSeparator bool   `yaml:"hide_separator,omitempty"`
	Bold          bool   `yaml:"bold,omitempty"`
}

func profileExport(ses *session, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: cryptick profile export REF [FILE]")
	}
	p, err := ses.mgr.Find(args[0])
	if err != nil {
		return err
	}

	doc := profileDoc{
		Name:    p.Name,
		Monitor: p.Monitor,
		Style:   styleDoc(p.Style),
		Tokens:  make([]tokenDoc, 0, len(p.Tokens)),
	}
	for _, t := range p.Tokens {
		doc.Tokens = append(doc.Tokens, tokenDoc(t))
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode profile [%s]: %w", p.Name, err)
	}
	if err := enc.Close(); err != nil {
		return err
	}

	if len(args) == 1 || args[1] == "-" {
		_, err := ses.out.Write(buf.Bytes())
		return err
	}
	if err := os.WriteFile(args[1], buf.Bytes(), paths.FilePerm); err != nil {
		return fmt.Errorf("write export [%s]: %w", args[1], err)
	}
	fmt.Fprintf(ses.out, "Exported %q to %s\n", p.Name, args[1])
	return nil
}

func profileImport(ses *session, args []string, stdin io.Reader) error {
	fs := ses.subFlags("profile import")
	name := fs.String("name", "", "name for the new profile (default: the exported name)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	args = fs.Args()
	if err := wantArgs(args, 1, "profile import FILE|- [--name NAME]"); err != nil {
		return err
	}

	var (
		b   []byte
		err error
	)
	if args[0] == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read import [%s]: %w", args[0], err)
	}

	doc := profileDoc{Style: styleDoc(ses.mgr.State().Defaults)}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return fmt.Errorf("decode profile [%s]: %w", args[0], err)
	}
	if *name != "" {
		doc.Name = *name
	}

	p, err := ses.mgr.Create(doc.Name)
	if err != nil {
		return err
	}
	if err := ses.mgr.UpdateStyle(p.ID, func(s *config.Style) { *s = config.Style(doc.Style) }); err != nil {
		return err
	}
	if err := ses.mgr.SetMonitor(p.ID, doc.Monitor); err != nil {
		return err
	}

	added := 0
	for _, t := range doc.Tokens {
		if err := ses.mgr.AddToken(p.ID, market.TickerEntry(t)); err != nil {
			fmt.Fprintf(ses.out, "warning: skipped %s:%s: %v\n", t.NetworkID, t.Address, err)
			continue
		}
		added++
	}
	fmt.Fprintf(ses.out, "Imported %q with %d of %d tokens\n", p.Name, added, len(doc.Tokens))
	return nil
}
