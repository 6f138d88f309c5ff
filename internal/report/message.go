package report

import (
	"strings"

	"rollcall/internal/config"
	"rollcall/internal/sheet"
	"rollcall/internal/textnorm"
	"rollcall/internal/tmpl"
)

// Outcome is the result of building a row's message.
type Outcome int

const (
	// Ready means the message was rendered and has a known contact.
	Ready Outcome = iota
	// SkipEmptyID means the identifier cell was blank.
	SkipEmptyID
	// SkipNoContact means the identifier has no entry in the contact book.
	SkipNoContact
)

func (o Outcome) String() string {
	switch o {
	case Ready:
		return "ready"
	case SkipEmptyID:
		return "empty identifier"
	case SkipNoContact:
		return "no contact"
	default:
		return "unknown"
	}
}

// Labels are the fixed strings framing the absence sections.
type Labels struct {
	Unjustified string
	Justified   string
	Bullet      string
}

// Templates are the configured message templates.
type Templates struct {
	Header     *tmpl.Template // {name}
	Footer     *tmpl.Template // {name}
	NoAbsences *tmpl.Template // {name}, {month}
}

// Message is the rendered report for one person.
type Message struct {
	Name   string // identifier as written in the sheet
	Key    string // normalised name
	Phones []string
	Text   string
	Attendance
}

// Builder turns attendance rows into messages. It has no side effects.
type Builder struct {
	IDColumn    string
	DateColumns []string
	Sentinels   Sentinels
	Contacts    map[string][]string // normalised name -> phones
	Templates   Templates
	Labels      Labels
	Period      string
}

// NewBuilder wires a builder from validated configuration and the table
// headers, which select the tracked date columns.
func NewBuilder(cfg *config.Config, headers []string) (*Builder, error) {
	header, err := tmpl.Parse(cfg.Messages.HeaderWithAbsences, "name")
	if err != nil {
		return nil, &config.ConfigError{Field: "messages.header_with_absences", Message: "invalid template", Err: err}
	}
	footer, err := tmpl.Parse(cfg.Messages.FooterWithAbsences, "name")
	if err != nil {
		return nil, &config.ConfigError{Field: "messages.footer_with_absences", Message: "invalid template", Err: err}
	}
	none, err := tmpl.Parse(cfg.Messages.NoAbsences, "name", "month")
	if err != nil {
		return nil, &config.ConfigError{Field: "messages.no_absences", Message: "invalid template", Err: err}
	}

	contacts, _, _ := cfg.ContactBook()
	return &Builder{
		IDColumn:    cfg.DataMapping.IDColumn,
		DateColumns: DateColumns(headers, cfg.DateRegexp()),
		Sentinels: Sentinels{
			Unjustified: cfg.DataMapping.NegativeValue,
			Justified:   cfg.DataMapping.JustifiedValue,
		},
		Contacts:  contacts,
		Templates: Templates{Header: header, Footer: footer, NoAbsences: none},
		Labels: Labels{
			Unjustified: orDefault(cfg.Messages.UnjustifiedLabel, config.DefaultUnjustifiedLabel),
			Justified:   orDefault(cfg.Messages.JustifiedLabel, config.DefaultJustifiedLabel),
			Bullet:      orDefault(cfg.Messages.Bullet, config.DefaultBullet),
		},
		Period: cfg.PeriodLabel(),
	}, nil
}

// Build renders the message for row. Skipped rows return a zero Message
// apart from Name and Key.
func (b *Builder) Build(row sheet.Row) (Message, Outcome) {
	name := strings.TrimSpace(row.Get(b.IDColumn))
	if name == "" {
		return Message{}, SkipEmptyID
	}

	key := textnorm.Name(name)
	phones, ok := b.Contacts[key]
	if !ok {
		return Message{Name: name, Key: key}, SkipNoContact
	}

	a := Classify(row, b.DateColumns, b.Sentinels)
	return Message{
		Name:       name,
		Key:        key,
		Phones:     phones,
		Text:       b.Render(name, a),
		Attendance: a,
	}, Ready
}

// Render formats the message for name. Without absences it is the
// no-absences template; otherwise header, the non-empty sections
// (unjustified first) and the footer.
func (b *Builder) Render(name string, a Attendance) string {
	if a.Empty() {
		return b.Templates.NoAbsences.Execute(map[string]string{"name": name, "month": b.Period})
	}

	values := map[string]string{"name": name}
	var sb strings.Builder
	sb.WriteString(b.Templates.Header.Execute(values))
	sb.WriteString("\n\n")
	b.writeSection(&sb, b.Labels.Unjustified, a.Unjustified)
	b.writeSection(&sb, b.Labels.Justified, a.Justified)
	sb.WriteString(b.Templates.Footer.Execute(values))
	return sb.String()
}

func (b *Builder) writeSection(sb *strings.Builder, label string, cols []string) {
	if len(cols) == 0 {
		return
	}
	sb.WriteString(label)
	sb.WriteString("\n")
	for i, c := range cols {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(b.Labels.Bullet)
		sb.WriteString(c)
	}
	sb.WriteString("\n\n")
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
