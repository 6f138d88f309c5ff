// Package dispatch runs the delivery loop: every attendance row becomes one
// message, sent to each of the person's phones in turn.
package dispatch

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"rollcall/internal/logging"
	"rollcall/internal/report"
	"rollcall/internal/sheet"
	"rollcall/internal/textnorm"
)

// Sender submits one message to one phone number (digits only).
type Sender interface {
	Send(ctx context.Context, phone, text string) error
}

// Summary counts what a run did.
type Summary struct {
	Rows             int
	Messages         int // rows that produced a message with at least one phone
	Sent             int
	Previewed        int // dry run: rendered but not sent
	Failed           int
	SkippedEmptyID   int
	SkippedNoContact int
	SkippedNoPhone   int
}

// Fields returns the summary as log fields.
func (s Summary) Fields() []zap.Field {
	return []zap.Field{
		zap.Int("rows", s.Rows),
		zap.Int("messages", s.Messages),
		zap.Int("sent", s.Sent),
		zap.Int("previewed", s.Previewed),
		zap.Int("failed", s.Failed),
		zap.Int("skipped_empty_id", s.SkippedEmptyID),
		zap.Int("skipped_no_contact", s.SkippedNoContact),
		zap.Int("skipped_no_phone", s.SkippedNoPhone),
	}
}

func (s Summary) String() string {
	out := fmt.Sprintf("%d rows, %d sent, %d failed, %d skipped",
		s.Rows, s.Sent, s.Failed, s.SkippedEmptyID+s.SkippedNoContact+s.SkippedNoPhone)
	if s.Previewed > 0 {
		out += fmt.Sprintf(", %d previewed", s.Previewed)
	}
	return out
}

// Dispatcher sends the messages built from a table, strictly one at a time.
type Dispatcher struct {
	Builder *report.Builder
	Sender  Sender
	Log     *logging.Logger
	// DryRun logs PREVIEW instead of SENDING and DONE, and counts
	// Previewed instead of Sent.
	DryRun bool
}

// Run processes every row of tbl. A failure to reach one phone is logged and
// counted; it never stops the run. Only context cancellation does, and then
// Run returns the partial summary with the context error.
func (d *Dispatcher) Run(ctx context.Context, tbl *sheet.Table) (Summary, error) {
	log := d.Log
	if log == nil {
		log = logging.Nop()
	}

	var sum Summary
	for _, row := range tbl.Rows {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Rows++

		msg, outcome := d.Builder.Build(row)
		switch outcome {
		case report.SkipEmptyID:
			sum.SkippedEmptyID++
			log.Debug("row without identifier", zap.Int("row", sum.Rows))
			continue
		case report.SkipNoContact:
			sum.SkippedNoContact++
			log.Event(logging.StatusSkipping, "No contact for: "+msg.Name, zap.String("key", msg.Key))
			continue
		}
		if len(msg.Phones) == 0 {
			sum.SkippedNoPhone++
			log.Event(logging.StatusSkipping, "No phone numbers for: "+msg.Name)
			continue
		}

		sum.Messages++
		for _, phone := range msg.Phones {
			if err := ctx.Err(); err != nil {
				return sum, err
			}
			if err := d.deliver(ctx, log, msg, phone); err != nil {
				if errors.Is(err, context.Canceled) && ctx.Err() != nil {
					return sum, ctx.Err()
				}
				sum.Failed++
				continue
			}
			if d.DryRun {
				sum.Previewed++
			} else {
				sum.Sent++
			}
		}
	}
	return sum, nil
}

func (d *Dispatcher) deliver(ctx context.Context, log *logging.Logger, msg report.Message, phone string) error {
	digits := textnorm.Phone(phone)
	if digits == "" {
		err := fmt.Errorf("no digits in phone number %q", phone)
		log.Event(logging.StatusFailure, fmt.Sprintf("Phone %s: %v", phone, err), zap.String("name", msg.Name))
		return err
	}

	to := fmt.Sprintf("To: %-15s | +%s", msg.Name, digits)
	if d.DryRun {
		log.Event(logging.StatusPreview, to)
	} else {
		log.Event(logging.StatusSending, to)
	}
	if err := d.Sender.Send(ctx, digits, msg.Text); err != nil {
		log.Event(logging.StatusFailure, fmt.Sprintf("Phone %s: %v", digits, err),
			zap.String("name", msg.Name), zap.Error(err))
		return err
	}
	if !d.DryRun {
		log.Event(logging.StatusDone, "Sent to "+msg.Name, zap.String("phone", digits))
	}
	return nil
}
