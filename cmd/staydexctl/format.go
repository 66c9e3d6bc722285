package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	staydex "github.com/kailas-cloud/staydex/pkg/sdk"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Width(14)

	blockStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("32"))

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

func field(label string, value any) string {
	return labelStyle.Render(label) + fmt.Sprint(value)
}

// sortedCounts renders a count map largest first, ties by key.
func sortedCounts(m map[string]int64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = fmt.Sprintf("  %-24s %d", k, m[k])
	}
	return out
}

func renderStats(st staydex.IndexStats) string {
	lines := []string{
		titleStyle.Render("Index statistics"),
		field("Key prefix", st.KeyPrefix),
		field("Documents", st.Documents),
		field("Approved", st.Approved),
		field("With geo", st.Geo),
		field("Priced", st.Priced),
		field("Index keys", st.IndexKeys),
	}
	if len(st.ByCity) > 0 {
		lines = append(lines, "", titleStyle.Render("By city"))
		lines = append(lines, sortedCounts(st.ByCity)...)
	}
	if len(st.ByUnitType) > 0 {
		lines = append(lines, "", titleStyle.Render("By unit type"))
		lines = append(lines, sortedCounts(st.ByUnitType)...)
	}
	if len(st.Meta) > 0 {
		keys := make([]string, 0, len(st.Meta))
		for k := range st.Meta {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		lines = append(lines, "", titleStyle.Render("Meta"))
		for _, k := range keys {
			lines = append(lines, field(k, st.Meta[k]))
		}
	}
	return blockStyle.Render(strings.Join(lines, "\n"))
}

func renderRebuildReport(r staydex.RebuildReport) string {
	lines := []string{
		titleStyle.Render("Rebuild complete"),
		field("Indexed", r.Indexed),
		field("Removed", r.Removed),
		field("Failed", r.Failed),
	}
	for _, e := range r.Errors {
		lines = append(lines, errStyle.Render("  "+e))
	}
	return blockStyle.Render(strings.Join(lines, "\n"))
}

func renderCleanupReport(r staydex.CleanupReport) string {
	return blockStyle.Render(strings.Join([]string{
		titleStyle.Render("Cleanup complete"),
		field("Orphans", r.OrphanDocuments),
		field("Indexes", r.IndexesScanned),
		field("Stale refs", r.StaleReferences),
	}, "\n"))
}

func renderHealth(h staydex.HealthStatus) string {
	status := okStyle.Render(h.Status)
	if !h.Healthy() {
		status = errStyle.Render(h.Status)
	}
	keys := make([]string, 0, len(h.Checks))
	for k := range h.Checks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := []string{field("Status", status)}
	for _, k := range keys {
		lines = append(lines, field(k, h.Checks[k]))
	}
	return strings.Join(lines, "\n")
}

func renderStrategy(s staydex.Strategy) string {
	line := s.Level
	if s.Description != "" {
		line += ": " + s.Description
	}
	if len(s.RelaxedFilters) > 0 {
		line += " (relaxed " + strings.Join(s.RelaxedFilters, ", ") + ")"
	}
	if s.Level == staydex.LevelExact {
		return okStyle.Render(line)
	}
	return warnStyle.Render(line)
}

func pageFooter(page, totalPages, total int) string {
	return metaStyle.Render(fmt.Sprintf("page %d of %d, %d results", page, totalPages, total))
}

func unitLine(u *staydex.Unit) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s / %s  %s", u.UnitID, u.PropertyName, u.UnitName, u.City)
	if u.StarRating > 0 {
		fmt.Fprintf(&b, "  %d*", u.StarRating)
	}
	fmt.Fprintf(&b, "  rating %.1f  guests %d", u.AverageRating, u.Capacity.Total)
	if u.Quote != nil {
		fmt.Fprintf(&b, "  %.2f for %d nights", u.Quote.Total, u.Quote.Nights)
		if u.Quote.Extrapolated {
			b.WriteString(" (est.)")
		}
	} else if u.NightlyPrice > 0 {
		fmt.Fprintf(&b, "  %.2f/night", u.NightlyPrice)
	}
	if u.DistanceKm != nil {
		fmt.Fprintf(&b, "  %.1f km", *u.DistanceKm)
	}
	return b.String()
}

func renderUnits(p staydex.Page[staydex.Unit]) string {
	lines := []string{renderStrategy(p.Strategy)}
	if len(p.Items) == 0 {
		lines = append(lines, metaStyle.Render("no units found"))
	}
	for i := range p.Items {
		lines = append(lines, unitLine(&p.Items[i]))
	}
	lines = append(lines, pageFooter(p.Page, p.TotalPages, p.Total))
	return strings.Join(lines, "\n")
}

func renderProperties(p staydex.Page[staydex.Property]) string {
	lines := []string{renderStrategy(p.Strategy)}
	if len(p.Items) == 0 {
		lines = append(lines, metaStyle.Render("no properties found"))
	}
	for i := range p.Items {
		prop := &p.Items[i]
		head := fmt.Sprintf("%s  %s  %s  %.2f-%.2f", prop.PropertyID, prop.Name, prop.City, prop.MinPrice, prop.MaxPrice)
		if prop.DistanceKm != nil {
			head += fmt.Sprintf("  %.1f km", *prop.DistanceKm)
		}
		lines = append(lines, titleStyle.Render(head))
		for j := range prop.Units {
			lines = append(lines, "  "+unitLine(&prop.Units[j]))
		}
	}
	lines = append(lines, pageFooter(p.Page, p.TotalPages, p.Total))
	return strings.Join(lines, "\n")
}
