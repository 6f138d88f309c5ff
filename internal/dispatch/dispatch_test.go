package dispatch

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zapcore"

	"rollcall/internal/config"
	"rollcall/internal/logging"
	"rollcall/internal/report"
	"rollcall/internal/sheet"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type sent struct {
	phone string
	text  string
}

type fakeSender struct {
	sent []sent
	fail map[string]error
	// cancel is called after the n-th send when set.
	cancel func()
	after  int
}

func (s *fakeSender) Send(_ context.Context, phone, text string) error {
	s.sent = append(s.sent, sent{phone, text})
	if s.cancel != nil && len(s.sent) == s.after {
		s.cancel()
	}
	return s.fail[phone]
}

func testBuilder(t *testing.T) *report.Builder {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Spreadsheet.Name = "Attendance"
	cfg.Spreadsheet.SheetName = "March"
	cfg.Contacts = map[string][]string{
		"Ana":   {"+55 11 99999-9999", "5511888888888"},
		"Bruno": {"5521777777777"},
		"Caio":  {},
		"Davi":  {"n/a", "5531666666666"},
	}
	cfg.Messages.HeaderWithAbsences = "Hi {name}"
	cfg.Messages.FooterWithAbsences = "Bye"
	cfg.Messages.NoAbsences = "All good {name} ({month})"
	cfg.DataMapping = config.DataMappingConfig{IDColumn: "Name", NegativeValue: "x", JustifiedValue: "j"}
	cfg.Patterns.DateRegex = `^D\d$`
	require.NoError(t, cfg.Validate())

	b, err := report.NewBuilder(cfg, []string{"Name", "D1", "D2"})
	require.NoError(t, err)
	return b
}

func testTable() *sheet.Table {
	return &sheet.Table{
		Headers: []string{"Name", "D1", "D2"},
		Rows: []sheet.Row{
			{"Name": "Ana", "D1": "x", "D2": ""},
			{"Name": "", "D1": "x"},
			{"Name": "Zoe", "D1": "x"},
			{"Name": "bruno", "D1": "", "D2": ""},
			{"Name": "Caio", "D1": "j"},
			{"Name": "Davi", "D2": "j"},
		},
	}
}

func testLogger(t *testing.T) (*logging.Logger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	l, err := logging.New(logging.Options{Level: zapcore.InfoLevel, Console: true, Writer: &buf})
	require.NoError(t, err)
	return l, &buf
}

func TestRun(t *testing.T) {
	log, out := testLogger(t)
	s := &fakeSender{fail: map[string]error{"5511999999999": errors.New("composer never appeared")}}
	d := &Dispatcher{Builder: testBuilder(t), Sender: s, Log: log}

	sum, err := d.Run(context.Background(), testTable())
	require.NoError(t, err)

	want := Summary{
		Rows:             6,
		Messages:         3,
		Sent:             3,
		Failed:           2,
		SkippedEmptyID:   1,
		SkippedNoContact: 1,
		SkippedNoPhone:   1,
	}
	if diff := cmp.Diff(want, sum); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}

	// The first phone of Ana fails; the second still receives the message.
	require.Len(t, s.sent, 4)
	assert.Equal(t, "5511999999999", s.sent[0].phone)
	assert.Equal(t, "5511888888888", s.sent[1].phone)
	assert.Equal(t, s.sent[0].text, s.sent[1].text)
	assert.Equal(t, "5521777777777", s.sent[2].phone)
	assert.Equal(t, "All good bruno (March)", s.sent[2].text)
	assert.Equal(t, "5531666666666", s.sent[3].phone)

	console := out.String()
	assert.Contains(t, console, "SKIPPING   | No contact for: Zoe")
	assert.Contains(t, console, "SKIPPING   | No phone numbers for: Caio")
	assert.Contains(t, console, "SENDING    | To: Ana             | +5511999999999")
	assert.Contains(t, console, "FAILURE    | Phone 5511999999999: composer never appeared")
	assert.Contains(t, console, `FAILURE    | Phone n/a: no digits in phone number "n/a"`)
	assert.Contains(t, console, "DONE       | Sent to Ana")
	assert.Equal(t, 3, strings.Count(console, "DONE"))
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := &fakeSender{cancel: cancel, after: 1}
	d := &Dispatcher{Builder: testBuilder(t), Sender: s}

	sum, err := d.Run(ctx, testTable())
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, s.sent, 1)
	assert.Equal(t, 1, sum.Sent)
	assert.Equal(t, 1, sum.Rows)
}

func TestRun_EmptyTable(t *testing.T) {
	d := &Dispatcher{Builder: testBuilder(t), Sender: &fakeSender{}}
	sum, err := d.Run(context.Background(), &sheet.Table{Headers: []string{"Name"}})
	require.NoError(t, err)
	assert.Equal(t, Summary{}, sum)
}

func TestSummary(t *testing.T) {
	s := Summary{Rows: 5, Sent: 2, Failed: 1, SkippedEmptyID: 1, SkippedNoContact: 1}
	assert.Equal(t, "5 rows, 2 sent, 1 failed, 2 skipped", s.String())
	assert.Len(t, s.Fields(), 8)

	s.Previewed = 3
	assert.Equal(t, "5 rows, 2 sent, 1 failed, 2 skipped, 3 previewed", s.String())
}

func TestRun_DryRun(t *testing.T) {
	log, out := testLogger(t)
	s := &fakeSender{fail: map[string]error{"5511999999999": errors.New("closed pipe")}}
	d := &Dispatcher{Builder: testBuilder(t), Sender: s, Log: log, DryRun: true}

	sum, err := d.Run(context.Background(), testTable())
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Sent)
	assert.Equal(t, 3, sum.Previewed)
	assert.Equal(t, 2, sum.Failed)
	assert.Len(t, s.sent, 4)

	console := out.String()
	assert.Contains(t, console, "PREVIEW    | To: Ana             | +5511888888888")
	assert.NotContains(t, console, "SENDING")
	assert.NotContains(t, console, "DONE")
	assert.NotContains(t, console, "Sent to")
}

func TestPreviewSender(t *testing.T) {
	var buf bytes.Buffer
	d := &Dispatcher{Builder: testBuilder(t), Sender: &PreviewSender{W: &buf}}

	sum, err := d.Run(context.Background(), &sheet.Table{
		Headers: []string{"Name", "D1"},
		Rows:    []sheet.Row{{"Name": "Bruno", "D1": "x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Sent)

	out := buf.String()
	assert.Contains(t, out, "+5521777777777")
	assert.Contains(t, out, "Hi Bruno")
	assert.Contains(t, out, "• D1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, (&PreviewSender{W: &buf}).Send(ctx, "1", "x"), context.Canceled)
}
