package report

import (
	"fmt"
	"slices"
	"strings"
)

// ParseSections reads the absence sections back out of a rendered message.
// A section starts at a line equal to its label and runs until a blank line;
// each bulleted line in it names one column. A column header containing a
// line break comes back as its first line only.
func ParseSections(text string, labels Labels) Attendance {
	var (
		a       Attendance
		current *[]string
	)
	for _, line := range strings.Split(text, "\n") {
		switch {
		case line == labels.Unjustified:
			current = &a.Unjustified
		case line == labels.Justified:
			current = &a.Justified
		case strings.TrimSpace(line) == "":
			current = nil
		case current != nil:
			if col, ok := strings.CutPrefix(line, labels.Bullet); ok {
				*current = append(*current, col)
			}
		}
	}
	return a
}

// Verify checks that the sections of m.Text name exactly the columns m was
// classified with.
func (b *Builder) Verify(m Message) error {
	got := ParseSections(m.Text, b.Labels)
	var err error
	if !slices.Equal(got.Unjustified, m.Unjustified) {
		err = fmt.Errorf("%s: unjustified section lists %q, want %q", m.Name, got.Unjustified, m.Unjustified)
	} else if !slices.Equal(got.Justified, m.Justified) {
		err = fmt.Errorf("%s: justified section lists %q, want %q", m.Name, got.Justified, m.Justified)
	}
	if err != nil {
		if multi := MultilineColumns(append(slices.Clone(m.Unjustified), m.Justified...)); len(multi) > 0 {
			err = fmt.Errorf("%w (headers %q contain line breaks)", err, multi)
		}
	}
	return err
}
