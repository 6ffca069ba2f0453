// Package display renders name-resolution results for the terminal or as JSON.
package display

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/rodaine/table"

	"github.com/dmagro/grtinfo/internal/ens"
)

var (
	green = color.New(color.FgGreen).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
	dim   = color.New(color.Faint).SprintFunc()
)

// DisableColors turns off ANSI colors, e.g. for JSON output or when piping.
func DisableColors() {
	color.NoColor = true
}

func newTable(w io.Writer, columns ...interface{}) table.Table {
	headerFmt := color.New(color.FgCyan, color.Underline).SprintfFunc()
	return table.New(columns...).WithWriter(w).WithHeaderFormatter(headerFmt)
}

func nameOrDash(name string) string {
	if name == "" {
		return dim("-")
	}
	return green(name)
}

// Lookup is the result of a single address or name lookup.
type Lookup struct {
	Query  string `json:"query"`
	Result string `json:"result,omitempty"`
	Found  bool   `json:"found"`
}

// RenderLookup prints "query → result" or a not-found line.
func RenderLookup(w io.Writer, l Lookup) {
	if !l.Found {
		fmt.Fprintf(w, "%s %s\n", bold(l.Query), dim("→ not found"))
		return
	}
	fmt.Fprintf(w, "%s → %s\n", bold(l.Query), green(l.Result))
}

// BatchRow is one address of a batch lookup.
type BatchRow struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}

// BatchRows orders a batch result by address.
func BatchRows(results map[string]string) []BatchRow {
	rows := make([]BatchRow, 0, len(results))
	for addr, name := range results {
		rows = append(rows, BatchRow{Address: addr, Name: name})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Address < rows[j].Address })
	return rows
}

// RenderBatch prints a batch result as a table with a resolved count footer.
func RenderBatch(w io.Writer, rows []BatchRow) {
	tbl := newTable(w, "Address", "Name")
	resolved := 0
	for _, r := range rows {
		if r.Name != "" {
			resolved++
		}
		tbl.AddRow(r.Address, nameOrDash(r.Name))
	}
	tbl.Print()
	fmt.Fprintf(w, "\n%s %d/%d resolved\n", cyan("▸"), resolved, len(rows))
}

// RenderSearch prints search results in the order returned (newest first).
func RenderSearch(w io.Writer, fragment string, records []ens.NameRecord) {
	if len(records) == 0 {
		fmt.Fprintf(w, "No names matching %s\n", bold(fragment))
		return
	}
	tbl := newTable(w, "Name", "Address")
	for _, r := range records {
		addr := r.ResolvedAddress
		if addr == "" {
			addr = dim("-")
		}
		tbl.AddRow(r.Name, addr)
	}
	tbl.Print()
}

// RenderCache prints cache entries with their age relative to now.
func RenderCache(w io.Writer, entries []ens.Entry, ttl time.Duration, now time.Time) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "Cache is empty")
		return
	}
	tbl := newTable(w, "Address", "Name", "Resolved", "Expires")
	negative := 0
	for _, e := range entries {
		if e.Negative() {
			negative++
		}
		tbl.AddRow(
			e.Address,
			nameOrDash(e.Name),
			humanize.RelTime(e.ResolvedAt, now, "ago", "from now"),
			humanize.RelTime(e.ResolvedAt.Add(ttl), now, "ago", "from now"),
		)
	}
	tbl.Print()
	fmt.Fprintf(w, "\n%s %d entries (%d negative)\n", cyan("▸"), len(entries), negative)
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
