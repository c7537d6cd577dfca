package output

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"apiguard/internal/analysis"
	"apiguard/internal/compare"
	"apiguard/internal/contract"
	"apiguard/internal/risk"
)

type palette struct {
	critical, high, moderate, low func(...any) string
	added, faint                  func(...any) string
}

func newPalette(useColor bool) palette {
	if !useColor {
		return palette{
			critical: fmt.Sprint, high: fmt.Sprint, moderate: fmt.Sprint, low: fmt.Sprint,
			added: fmt.Sprint, faint: fmt.Sprint,
		}
	}
	return palette{
		critical: color.New(color.FgRed, color.Bold).SprintFunc(),
		high:     color.New(color.FgMagenta, color.Bold).SprintFunc(),
		moderate: color.New(color.FgYellow).SprintFunc(),
		low:      color.New(color.FgCyan).SprintFunc(),
		added:    color.New(color.FgGreen).SprintFunc(),
		faint:    color.New(color.Faint).SprintFunc(),
	}
}

func (p palette) level(l risk.Level) string {
	switch l {
	case risk.LevelCritical:
		return p.critical(string(l))
	case risk.LevelHigh:
		return p.high(string(l))
	case risk.LevelMedium:
		return p.moderate(string(l))
	default:
		return p.low(string(l))
	}
}

func (p palette) changeType(t compare.ChangeType) string {
	switch t {
	case compare.ChangeBreaking, compare.ChangeRemoved:
		return p.critical(string(t))
	case compare.ChangeModified:
		return p.moderate(string(t))
	default:
		return p.added(string(t))
	}
}

func writeHuman(w io.Writer, v interface{}, p palette) error {
	switch x := v.(type) {
	case ContractListing:
		return writeListing(w, x)
	case *ContractListing:
		return writeListing(w, *x)
	case []ContractListing:
		for i, l := range x {
			if i > 0 {
				if _, err := fmt.Fprintln(w); err != nil {
					return err
				}
			}
			if err := writeListing(w, l); err != nil {
				return err
			}
		}
		return nil
	case []compare.ContractChange:
		return writeChangeTable(w, x, p)
	case *ChangeSet:
		return writeChangeSet(w, x, p)
	case *RunChanges:
		return writeRunChanges(w, x, p)
	case *analysis.Report:
		return writeReport(w, x, p)
	default:
		return WriteJSON(w, v)
	}
}

func writeListing(w io.Writer, l ContractListing) error {
	if _, err := fmt.Fprintf(w, "%s (%s): %d endpoint(s)\n", l.File, l.Style, len(l.Contracts)); err != nil {
		return err
	}
	if len(l.Contracts) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()
	table.Header([]string{"Method", "Path", "Line", "Handler", "Parameters", "Returns"})

	var data [][]string
	for _, c := range l.Contracts {
		data = append(data, []string{
			string(c.Method),
			c.Path,
			strconv.Itoa(c.Source.Line),
			c.Handler,
			formatParams(c.Parameters),
			c.ReturnType,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func formatParams(params []contract.Parameter) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		s := p.Name
		if p.HasType() {
			s += ":" + p.Type
		}
		if !p.Required {
			s += "?"
		}
		parts = append(parts, fmt.Sprintf("%s(%s)", s, p.Location))
	}
	return strings.Join(parts, ", ")
}

func writeChangeTable(w io.Writer, changes []compare.ContractChange, p palette) error {
	if len(changes) == 0 {
		_, err := fmt.Fprintln(w, "No contract changes")
		return err
	}

	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()
	table.Header([]string{"Type", "Method", "Endpoint", "Severity", "Reason"})

	var data [][]string
	for _, c := range SortChanges(changes) {
		data = append(data, []string{
			p.changeType(c.ChangeType),
			string(c.Method),
			c.Endpoint,
			string(c.Details.Severity),
			c.Details.Reason,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writeSummary(w io.Writer, s compare.Summary, score risk.RiskScore, p palette) error {
	if _, err := fmt.Fprintf(w, "Summary: %d change(s): %d breaking, %d modified, %d added (semver: %s)\n",
		s.TotalChanges, s.BreakingChanges, s.Modified, s.Added, s.SemverAdvice); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Risk: %s %s - %s\n", FormatScore(score.Score), p.level(score.Level), score.Explanation)
	return err
}

func writeChangeSet(w io.Writer, cs *ChangeSet, p palette) error {
	if _, err := fmt.Fprintf(w, "%s -> %s\n", cs.Before, cs.After); err != nil {
		return err
	}
	if err := writeChangeTable(w, cs.Changes, p); err != nil {
		return err
	}
	return writeSummary(w, cs.Summary, cs.Risk, p)
}

func writeRunChanges(w io.Writer, rc *RunChanges, p palette) error {
	if _, err := fmt.Fprintf(w, "Run %s: %d stored change(s)\n", rc.RunID, len(rc.Records)); err != nil {
		return err
	}
	if len(rc.Records) == 0 {
		return nil
	}

	table := tablewriter.NewWriter(w)
	defer func() { _ = table.Close() }()
	table.Header([]string{"File", "Type", "Method", "Endpoint", "Reason"})

	var data [][]string
	for _, r := range SortRecords(rc.Records) {
		data = append(data, []string{
			r.File,
			p.changeType(r.Change.ChangeType),
			string(r.Change.Method),
			r.Change.Endpoint,
			r.Change.Details.Reason,
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

func writeReport(w io.Writer, r *analysis.Report, p palette) error {
	if _, err := fmt.Fprintf(w, "Run %s: %d file(s)\n", r.RunID, len(r.Files)); err != nil {
		return err
	}

	for _, f := range r.Files {
		if _, err := fmt.Fprintf(w, "\n%s", f.File); err != nil {
			return err
		}
		if f.BeforeSource != "" {
			if _, err := fmt.Fprint(w, p.faint(" (baseline: "+string(f.BeforeSource)+")")); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}

		if f.Error != nil {
			if _, err := fmt.Fprintf(w, "  error: %s\n", f.Error.Error()); err != nil {
				return err
			}
			continue
		}
		if err := writeChangeTable(w, f.Changes, p); err != nil {
			return err
		}
		if err := writeConsumers(w, f.Consumers); err != nil {
			return err
		}
		for _, s := range f.Suppressed {
			if _, err := fmt.Fprintf(w, "  suppressed %s: %s\n", s.Change.Key(), s.Reason); err != nil {
				return err
			}
		}
		if f.Insight != nil && f.Insight.Summary != "" {
			if _, err := fmt.Fprintf(w, "  insight: %s\n", f.Insight.Summary); err != nil {
				return err
			}
		}
		for _, warning := range f.Warnings {
			if _, err := fmt.Fprintf(w, "  warning: %s\n", warning); err != nil {
				return err
			}
		}
	}

	if _, err := fmt.Fprintln(w); err != nil {
		return err
	}
	return writeSummary(w, r.Summary, r.Risk, p)
}

func writeConsumers(w io.Writer, groups []analysis.EndpointConsumers) error {
	for _, g := range groups {
		sites := make([]string, 0, len(g.Consumers))
		for _, c := range g.Consumers {
			site := fmt.Sprintf("%s:%d", c.FilePath, c.LineNumber)
			if c.SourceRepo != "" {
				site = c.SourceRepo + "/" + site
			}
			sites = append(sites, site)
		}
		sort.Strings(sites)
		if _, err := fmt.Fprintf(w, "  consumers of %s: %s\n", g.Endpoint, strings.Join(sites, ", ")); err != nil {
			return err
		}
	}
	return nil
}
