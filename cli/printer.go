package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"digestbot/config"
	"digestbot/types"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// previewTitleRunes caps titles in the dry-run table
const previewTitleRunes = 70

// printer renders run progress and reports for the terminal
type printer struct {
	out       io.Writer
	err       io.Writer
	useColors bool
}

func newPrinter(out, errOut io.Writer) *printer {
	return &printer{out: out, err: errOut, useColors: !color.NoColor}
}

func (p *printer) Header(title string) {
	line := strings.Repeat("=", 60)
	if p.useColors {
		color.New(color.FgCyan).Fprintf(p.out, "\n%s\n", line)
		color.New(color.Bold).Fprintf(p.out, "  %s\n", title)
		color.New(color.FgCyan).Fprintf(p.out, "%s\n", line)
		return
	}
	fmt.Fprintf(p.out, "\n%s\n  %s\n%s\n", line, title, line)
}

func (p *printer) Success(format string, args ...any) {
	if p.useColors {
		color.New(color.FgGreen).Fprintf(p.out, "✓ "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.out, "[OK] "+format+"\n", args...)
}

func (p *printer) Warning(format string, args ...any) {
	if p.useColors {
		color.New(color.FgYellow).Fprintf(p.err, "⚠ "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.err, "[WARN] "+format+"\n", args...)
}

func (p *printer) Failure(format string, args ...any) {
	if p.useColors {
		color.New(color.FgRed).Fprintf(p.err, "✗ "+format+"\n", args...)
		return
	}
	fmt.Fprintf(p.err, "[ERROR] "+format+"\n", args...)
}

// Banner prints the run header
func (p *printer) Banner(cfg *config.Config, days int) {
	p.Header(fmt.Sprintf("微信公众号 AI 周报  %s", time.Now().Format("2006-01-02 15:04")))
	fmt.Fprintf(p.out, "  范围: 最近 %d 天\n", days)
	fmt.Fprintf(p.out, "  账号: %s\n\n", strings.Join(cfg.Accounts(), ", "))
}

// Counts prints the per-account fetch table
func (p *printer) Counts(r *types.RunReport) {
	rows := make([][]string, 0, len(r.Counts))
	for _, c := range r.Counts {
		note := c.Error
		rows = append(rows, []string{c.Group, c.Account, strconv.Itoa(c.Fetched), strconv.Itoa(c.Kept), note})
	}
	p.table([]string{"GROUP", "ACCOUNT", "FETCHED", fmt.Sprintf("LAST %dD", r.Days), "NOTE"}, rows)
	fmt.Fprintf(p.out, "\n合计: %d 篇\n", r.Total)
}

// Preview prints every collected article without writing anything
func (p *printer) Preview(r *types.RunReport) {
	var rows [][]string
	for _, slot := range r.Result.Accounts {
		for _, a := range slot.Articles {
			rows = append(rows, []string{slot.Account, a.Date(), types.TruncateRunes(a.Title, previewTitleRunes)})
		}
	}
	fmt.Fprintln(p.out)
	p.table([]string{"ACCOUNT", "DATE", "TITLE"}, rows)
	p.Warning("dry run: nothing summarized or written")
}

// Report prints the summary and per-sink outcomes of a completed run
func (p *printer) Report(r *types.RunReport) {
	if r.HasSummary {
		p.Success("AI summary generated")
	} else {
		p.Warning("no AI summary")
	}

	rows := make([][]string, 0, len(r.Sinks))
	for _, s := range r.Sinks {
		status, detail := "ok", s.Location
		switch {
		case s.Skipped:
			status, detail = "skipped", s.Error
		case !s.OK:
			status, detail = "failed", s.Error
		}
		rows = append(rows, []string{s.Sink, status, detail})
	}
	fmt.Fprintln(p.out)
	p.table([]string{"SINK", "STATUS", "LOCATION"}, rows)

	if r.Failed() {
		p.Failure("some outputs failed, see the table above")
	}
	p.Header(fmt.Sprintf("完成！合计 %d 篇", r.Total))
}

func (p *printer) table(header []string, rows [][]string) {
	table := tablewriter.NewTable(p.out,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.Off},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	table.Header(header)
	_ = table.Bulk(rows)
	_ = table.Render()
}
