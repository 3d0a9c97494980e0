// Package cli prints the merged substitution relations as a terminal table.
package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/yigit/substitutions/internal/app/services"
	"github.com/yigit/substitutions/internal/app/views"
	"github.com/yigit/substitutions/internal/domain"
)

// Printer writes snapshots to a terminal
type Printer struct {
	out     io.Writer
	heading *color.Color
	both    *color.Color
	one     *color.Color
	muted   *color.Color
	failure *color.Color
}

// NewPrinter creates a Printer. With colorize false no escape codes are written.
func NewPrinter(out io.Writer, colorize bool) *Printer {
	p := &Printer{
		out:     out,
		heading: color.New(color.FgCyan, color.Bold),
		both:    color.New(color.FgGreen, color.Bold),
		one:     color.New(color.FgBlue, color.Bold),
		muted:   color.New(color.FgHiBlack),
		failure: color.New(color.FgRed),
	}
	for _, c := range []*color.Color{p.heading, p.both, p.one, p.muted, p.failure} {
		if colorize {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

// Print renders the snapshot: a table of relations, or the status message when
// there is nothing to show.
func (p *Printer) Print(snap services.Snapshot) error {
	if _, err := p.heading.Fprintln(p.out, views.PageTitle); err != nil {
		return err
	}

	if len(snap.Relations) == 0 {
		msg := snap.Message
		if msg == "" {
			msg = services.MessageEmpty
		}
		c := p.muted
		if snap.Status == services.StatusError {
			c = p.failure
		}
		_, err := c.Fprintln(p.out, msg)
		return err
	}

	table := tablewriter.NewWriter(p.out)
	table.SetHeader([]string{"#", "Substitutes", "Dir", "Originals", "Credits"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetRowLine(true)

	for i, r := range snap.Relations {
		table.Append([]string{
			strconv.Itoa(i + 1),
			formatGroup(r.Substitutes()),
			p.arrow(r),
			formatGroup(r.Originals()),
			views.FormatNumber(totalCredits(r.Substitutes())) + " / " + views.FormatNumber(totalCredits(r.Originals())),
		})
	}
	table.Render()

	both := domain.Stats(len(snap.Relations), snap.Relations).Bidirectional
	_, err := p.muted.Fprintf(p.out, "%d relations, %d interchangeable, %d rules received, %d dropped\n",
		len(snap.Relations), both, snap.Received, snap.Dropped)
	return err
}

func (p *Printer) arrow(r domain.Relation) string {
	if r.Interchangeable() {
		return p.both.Sprint("<->")
	}
	return p.one.Sprint("->")
}

func formatGroup(courses []domain.Course) string {
	parts := make([]string, len(courses))
	for i, c := range courses {
		parts[i] = fmt.Sprintf("%s %s (%s cr, %s h)", c.Code, c.CN, views.FormatNumber(c.Credits), views.FormatNumber(c.Period))
	}
	return strings.Join(parts, " + ")
}

func totalCredits(courses []domain.Course) float64 {
	var sum float64
	for _, c := range courses {
		sum += c.Credits
	}
	return sum
}
