package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/sa-retail/strukindex/internal/index"
	"github.com/sa-retail/strukindex/internal/receipt"
	"github.com/sa-retail/strukindex/internal/store"
)

// Renderer writes command results to one stream.
type Renderer struct {
	out      io.Writer
	styles   Styles
	jsonMode bool
}

// NewRenderer builds a renderer for out. Colors are enabled only when
// out is a terminal; jsonMode switches every method to JSON lines.
func NewRenderer(out io.Writer, jsonMode bool) *Renderer {
	styles := NoColorStyles()
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		styles = DefaultStyles()
	}
	return &Renderer{out: out, styles: styles, jsonMode: jsonMode}
}

// Summaries renders a receipt list, one row per receipt.
func (r *Renderer) Summaries(items []receipt.Summary) error {
	if r.jsonMode {
		return r.writeJSON(items)
	}
	if len(items) == 0 {
		fmt.Fprintln(r.out, r.styles.Dim.Render("no receipts"))
		return nil
	}

	fmt.Fprintln(r.out, r.styles.Header.Render(
		fmt.Sprintf("%-10s  %-5s  %-22s  %-17s", "KEY", "YEAR", "LABEL", "DATETIME")))
	for _, item := range items {
		fmt.Fprintf(r.out, "%-10s  %-5s  %-22s  %-17s\n",
			item.Key, item.Year, item.Label, item.Datetime)
	}
	fmt.Fprintln(r.out, r.styles.Dim.Render(strconv.Itoa(len(items))+" receipt(s)"))
	return nil
}

// Summary renders a single receipt.
func (r *Renderer) Summary(item receipt.Summary) error {
	if r.jsonMode {
		return r.writeJSON(item)
	}
	fmt.Fprintf(r.out, "%s %s\n", r.styles.Label.Render("Key:"), item.Key)
	fmt.Fprintf(r.out, "%s %s\n", r.styles.Label.Render("Year:"), item.Year)
	fmt.Fprintf(r.out, "%s %s\n", r.styles.Label.Render("Register:"), item.Register)
	fmt.Fprintf(r.out, "%s %s\n", r.styles.Label.Render("Sequence:"), item.Sequence)
	fmt.Fprintf(r.out, "%s %s\n", r.styles.Label.Render("Label:"), item.Label)
	fmt.Fprintf(r.out, "%s %s\n", r.styles.Label.Render("Datetime:"), item.Datetime)
	return nil
}

// BuildResult renders the outcome of an index build.
func (r *Renderer) BuildResult(res index.Result) error {
	if r.jsonMode {
		return r.writeJSON(res)
	}
	if !res.Ran {
		fmt.Fprintf(r.out, "%s\n", r.styles.Dim.Render(
			"year "+res.Year+": skipped (cooldown active)"))
		return nil
	}
	fmt.Fprintf(r.out, "%s scanned=%d indexed=%d rejected=%d in %s\n",
		r.styles.Success.Render("year "+res.Year+":"),
		res.Scanned, res.Processed, res.Skipped,
		res.Elapsed.Round(time.Millisecond))
	return nil
}

// BuildStatus renders the persisted status of a year's builder.
func (r *Renderer) BuildStatus(year string, st index.Status, known bool) error {
	if r.jsonMode {
		if !known {
			return r.writeJSON(map[string]string{"year": year, "state": "unknown"})
		}
		return r.writeJSON(st)
	}
	if !known {
		fmt.Fprintf(r.out, "%-5s  %s\n", year, r.styles.Dim.Render("never built"))
		return nil
	}

	state := st.State
	switch st.State {
	case index.StateDone:
		state = r.styles.Success.Render(state)
	case index.StateFailed:
		state = r.styles.Error.Render(state)
	default:
		state = r.styles.Warning.Render(state)
	}
	fmt.Fprintf(r.out, "%-5s  %s  processed=%d  updated=%s\n",
		year, state, st.Processed,
		time.Unix(st.UpdatedAt, 0).Format("02-01-2006 15:04:05"))
	if st.Error != "" {
		fmt.Fprintf(r.out, "       %s\n", r.styles.Error.Render(st.Error))
	}
	return nil
}

// Years renders the available year partitions.
func (r *Renderer) Years(years []string) error {
	if r.jsonMode {
		return r.writeJSON(years)
	}
	for _, y := range years {
		fmt.Fprintln(r.out, y)
	}
	return nil
}

// Stats renders index-wide statistics.
func (r *Renderer) Stats(stats store.Stats) error {
	if r.jsonMode {
		return r.writeJSON(stats)
	}
	fmt.Fprintf(r.out, "%s %d\n", r.styles.Label.Render("Total rows:"), stats.TotalRows)
	fmt.Fprintf(r.out, "%s %d\n", r.styles.Label.Render("Pending normalization:"), stats.PendingContent)
	for _, year := range sortedYears(stats.RowsByYear) {
		fmt.Fprintf(r.out, "  %s %d\n", r.styles.Dim.Render(year+":"), stats.RowsByYear[year])
	}
	return nil
}

// Text renders a plain line.
func (r *Renderer) Text(s string) {
	fmt.Fprintln(r.out, s)
}

func (r *Renderer) writeJSON(v any) error {
	enc := json.NewEncoder(r.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func sortedYears(m map[string]int) []string {
	years := make([]string, 0, len(m))
	for y := range m {
		years = append(years, y)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(years)))
	return years
}
