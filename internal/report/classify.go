// Package report decides which tracked days were absences for a person and
// renders the message sent to their contacts.
package report

import (
	"regexp"
	"sort"
	"strings"

	"rollcall/internal/sheet"
)

// Sentinels are the cell values that mark an absence. Comparison trims and
// ignores case; every other value counts as present.
type Sentinels struct {
	Unjustified string
	Justified   string
}

// Attendance lists the tracked columns a person was absent on, in the order
// the columns appear in the sheet.
type Attendance struct {
	Unjustified []string
	Justified   []string
}

// Empty reports whether there are no absences of either kind.
func (a Attendance) Empty() bool {
	return len(a.Unjustified) == 0 && len(a.Justified) == 0
}

// DateColumns returns the headers matching re, preserving their order. A
// repeated header is listed once; rows only hold the value of its first
// column.
func DateColumns(headers []string, re *regexp.Regexp) []string {
	var cols []string
	seen := make(map[string]bool)
	for _, h := range headers {
		if re.MatchString(h) && !seen[h] {
			seen[h] = true
			cols = append(cols, h)
		}
	}
	return cols
}

// DuplicateDateColumns returns the headers matching re that appear more than
// once. Only the first of the repeated columns is read.
func DuplicateDateColumns(headers []string, re *regexp.Regexp) []string {
	var dups []string
	count := make(map[string]int)
	for _, h := range headers {
		if !re.MatchString(h) {
			continue
		}
		count[h]++
		if count[h] == 2 {
			dups = append(dups, h)
		}
	}
	return dups
}

// MultilineColumns returns the columns whose header contains a line break.
// Such a header renders as a bullet spanning several lines.
func MultilineColumns(cols []string) []string {
	var out []string
	for _, c := range cols {
		if strings.ContainsAny(c, "\r\n") {
			out = append(out, c)
		}
	}
	return out
}

// Classify sorts the row's tracked cells into unjustified and justified
// absences.
func Classify(row sheet.Row, dateCols []string, s Sentinels) Attendance {
	unjustified := strings.TrimSpace(s.Unjustified)
	justified := strings.TrimSpace(s.Justified)

	var a Attendance
	for _, col := range dateCols {
		v := strings.TrimSpace(row.Get(col))
		if v == "" {
			continue
		}
		switch {
		case strings.EqualFold(v, unjustified):
			a.Unjustified = append(a.Unjustified, col)
		case strings.EqualFold(v, justified):
			a.Justified = append(a.Justified, col)
		}
	}
	return a
}

// ValueCount is a distinct tracked cell value and how often it occurs.
type ValueCount struct {
	Value string
	Count int
}

// PresentValues counts the distinct non-blank tracked values that match
// neither sentinel, most frequent first. A typo in a status cell shows up
// here, because it is silently counted as present.
func PresentValues(rows []sheet.Row, dateCols []string, s Sentinels) []ValueCount {
	unjustified := strings.TrimSpace(s.Unjustified)
	justified := strings.TrimSpace(s.Justified)

	counts := make(map[string]int)
	for _, row := range rows {
		for _, col := range dateCols {
			v := strings.TrimSpace(row.Get(col))
			if v == "" || strings.EqualFold(v, unjustified) || strings.EqualFold(v, justified) {
				continue
			}
			counts[v]++
		}
	}

	out := make([]ValueCount, 0, len(counts))
	for v, n := range counts {
		out = append(out, ValueCount{Value: v, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}
