// Package display renders command output as styled tables and summaries
package display

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/mmcdole/arrsync/internal/adapter/destination"
	"github.com/mmcdole/arrsync/internal/domain"
	"github.com/mmcdole/arrsync/internal/service"
	"golang.org/x/term"
)

const defaultWidth = 100

// Printer writes human-readable output. Colors and table width adapt to
// whether out is a terminal.
type Printer struct {
	out         io.Writer
	interactive bool
	width       int
	st          styles
}

// NewPrinter creates a printer for out
func NewPrinter(out io.Writer) *Printer {
	p := &Printer{
		out:   out,
		width: defaultWidth,
		st:    newStyles(lipgloss.NewRenderer(out)),
	}
	if f, ok := out.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		p.interactive = true
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			p.width = w
		}
	}
	return p
}

// Interactive reports whether output goes to a terminal
func (p *Printer) Interactive() bool {
	return p.interactive
}

func (p *Printer) println(s string) {
	fmt.Fprintln(p.out, s)
}

func (p *Printer) Info(format string, args ...any) {
	p.println(fmt.Sprintf(format, args...))
}

func (p *Printer) Success(format string, args ...any) {
	p.println(p.st.Success.Render("✓ " + fmt.Sprintf(format, args...)))
}

func (p *Printer) Warn(format string, args ...any) {
	p.println(p.st.Warning.Render("! " + fmt.Sprintf(format, args...)))
}

func (p *Printer) Error(format string, args ...any) {
	p.println(p.st.Error.Render("✗ " + fmt.Sprintf(format, args...)))
}

func (p *Printer) Heading(s string) {
	p.println(p.st.Title.Render(s))
}

// DryRunBanner marks output that did not change anything
func (p *Printer) DryRunBanner() {
	p.println(p.st.Banner.Render("DRY RUN") + " " + p.st.Dim.Render("no changes will be made"))
}

func (p *Printer) newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(p.st.Border).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.st.Header
			}
			if col == 0 {
				return p.st.Cell.Bold(true)
			}
			return p.st.Cell
		})
}

func (p *Printer) status(s domain.SyncStatus) string {
	label := strings.ToUpper(string(s))
	switch s {
	case domain.StatusSuccess:
		return p.st.Success.Render(label)
	case domain.StatusFailed:
		return p.st.Error.Render(label)
	default:
		return p.st.Warning.Render(label)
	}
}

// SyncResults renders one row per item outcome
func (p *Printer) SyncResults(title string, results []domain.SyncResult) {
	if len(results) == 0 {
		return
	}

	t := p.newTable("Title", "Type", "Service", "Status", "Message")
	for _, r := range results {
		t.Row(
			r.Item.DisplayTitle(),
			r.Item.Kind.Label(),
			r.Service,
			p.status(r.Status),
			truncate(r.Message, p.width/2),
		)
	}

	p.Heading(title)
	p.println(t.String())
}

// Summary renders the counters of one pass
func (p *Printer) Summary(label string, s *domain.SyncSummary) {
	p.println(p.st.Bold.Render(label + ":"))
	p.println(fmt.Sprintf("  Total items:  %d", s.Total))
	p.println("  Movies added: " + p.st.Success.Render(strconv.Itoa(s.MoviesAdded)))
	p.println("  Shows added:  " + p.st.Success.Render(strconv.Itoa(s.ShowsAdded)))
	p.println("  Skipped:      " + p.st.Warning.Render(strconv.Itoa(s.Skipped)))
	p.println("  Failed:       " + p.st.Error.Render(strconv.Itoa(s.Failed)))
}

// Baseline reports what a baseline run marked
func (p *Printer) Baseline(label string, b service.BaselineSummary) {
	p.println(p.st.Bold.Render(label + " baseline:"))
	p.println(fmt.Sprintf("  Items seen:      %d", b.Total))
	p.println("  Marked synced:   " + p.st.Success.Render(strconv.Itoa(b.Marked)))
	p.println(fmt.Sprintf("  Already synced:  %d", b.AlreadySynced))
	if b.Unconfigured > 0 {
		p.println("  No destination:  " + p.st.Warning.Render(strconv.Itoa(b.Unconfigured)))
	}
}

// Tick prints one line per follow-mode pass, plus a line per added item
func (p *Printer) Tick(r service.TickReport) {
	stamp := p.st.Dim.Render(r.At.Format("15:04:05"))
	source := p.st.Accent.Render(r.Source)

	if r.Err != nil {
		p.println(fmt.Sprintf("%s %s %s", stamp, source, p.st.Error.Render(r.Err.Error())))
		return
	}
	if r.Summary == nil {
		return
	}

	s := r.Summary
	if r.Initial || s.MoviesAdded+s.ShowsAdded+s.Failed > 0 {
		p.println(fmt.Sprintf("%s %s %d items, %s added, %s failed",
			stamp, source, s.Total,
			p.st.Success.Render(strconv.Itoa(s.MoviesAdded+s.ShowsAdded)),
			p.st.Error.Render(strconv.Itoa(s.Failed))))
	}
	for _, res := range s.Results {
		switch res.Status {
		case domain.StatusSuccess:
			p.println("  " + p.st.Success.Render("+ "+res.Message))
		case domain.StatusFailed:
			p.println("  " + p.st.Error.Render("✗ "+res.Item.DisplayTitle()+": "+res.Message))
		}
	}
}

// History renders ledger rows
func (p *Printer) History(records []domain.SyncRecord) {
	if len(records) == 0 {
		p.println(p.st.Dim.Render("No sync history"))
		return
	}

	t := p.newTable("Date", "Title", "Type", "Service", "Status", "Error")
	for _, rec := range records {
		t.Row(
			rec.SyncedAt.Local().Format("2006-01-02 15:04"),
			rec.Title,
			rec.Kind.Label(),
			rec.Service,
			p.status(rec.Status),
			truncate(rec.Error, p.width/3),
		)
	}
	p.Heading(fmt.Sprintf("Recent Sync History (%d records)", len(records)))
	p.println(t.String())
}

// Watchlist renders fetched items
func (p *Printer) Watchlist(title string, items []*domain.WatchlistItem) {
	if len(items) == 0 {
		p.println(p.st.Dim.Render("No items"))
		return
	}

	t := p.newTable("Title", "Type", "Year", "Rating", "Genres", "IDs")
	for _, item := range items {
		year := "N/A"
		if item.Year > 0 {
			year = strconv.Itoa(item.Year)
		}
		rating := item.ContentRating
		if item.Rating > 0 {
			rating = strconv.FormatFloat(item.Rating, 'f', 1, 64) + "★"
		}
		if rating == "" {
			rating = "N/A"
		}
		ids := item.IDs.String()
		if ids == "" {
			ids = "N/A"
		}
		t.Row(truncate(item.Title, 40), item.Kind.Label(), year, rating, genres(item.Genres), ids)
	}
	p.Heading(fmt.Sprintf("%s (%d items)", title, len(items)))
	p.println(t.String())
}

// WatchlistDetails prints the longer fields the table leaves out
func (p *Printer) WatchlistDetails(items []*domain.WatchlistItem) {
	for _, item := range items {
		p.println("")
		p.println(p.st.Bold.Render(item.DisplayTitle()) + " " + p.st.Dim.Render(item.Key))
		if item.Studio != "" {
			p.println("  Studio:  " + item.Studio)
		}
		if !item.AddedAt.IsZero() {
			p.println("  Added:   " + item.AddedAt.Local().Format("2006-01-02"))
		}
		if item.Summary != "" {
			p.println("  " + truncate(item.Summary, p.width-2))
		}
	}
}

// ServiceInfo renders `radarr info` / `sonarr info`
func (p *Printer) ServiceInfo(name string, info *destination.Info) {
	p.Heading(fmt.Sprintf("%s %s", name, info.Version))

	profiles := p.newTable("ID", "Quality Profile")
	for _, qp := range info.QualityProfiles {
		profiles.Row(strconv.FormatInt(qp.ID, 10), qp.Name)
	}
	p.println(profiles.String())

	folders := p.newTable("Root Folder", "Free Space")
	for _, f := range info.RootFolders {
		folders.Row(f.Path, humanBytes(f.FreeSpace))
	}
	p.println(folders.String())

	if len(info.Tags) == 0 {
		p.println(p.st.Dim.Render("No tags"))
		return
	}
	tags := p.newTable("ID", "Tag")
	for _, tag := range info.Tags {
		tags.Row(strconv.Itoa(tag.ID), tag.Label)
	}
	p.println(tags.String())
}

// Check renders one status line, e.g. "Radarr  ✓ connected"
func (p *Printer) Check(label string, ok bool, detail string) {
	mark := p.st.Success.Render("✓")
	if !ok {
		mark = p.st.Error.Render("✗")
	}
	p.println(fmt.Sprintf("  %-12s %s %s", label, mark, detail))
}

func genres(g []string) string {
	if len(g) <= 3 {
		return strings.Join(g, ", ")
	}
	return strings.Join(g[:3], ", ") + "..."
}

func truncate(s string, n int) string {
	if n < 4 {
		n = 4
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
