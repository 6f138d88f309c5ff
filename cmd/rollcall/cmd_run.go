package main

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rollcall/internal/browser"
	"rollcall/internal/config"
	"rollcall/internal/dispatch"
	"rollcall/internal/logging"
	"rollcall/internal/report"
	"rollcall/internal/sheet"
	"rollcall/internal/whatsapp"
)

// prepare fetches the attendance table and builds the message builder for it.
// Every error it returns is fatal for the run.
func (a *app) prepare(ctx context.Context, cfg *config.Config) (*sheet.Table, *report.Builder, error) {
	a.warnContacts(cfg)

	src, err := sheet.Open(ctx, cfg)
	if err != nil {
		a.log.Event(logging.StatusHalted, "Cannot open data source: "+err.Error())
		return nil, nil, err
	}
	a.log.Event(logging.StatusSource, "Fetching "+src.Name())

	tbl, err := src.Fetch(ctx)
	if err != nil {
		a.log.Event(logging.StatusHalted, "Cannot fetch data: "+err.Error())
		return nil, nil, err
	}
	if err := tbl.Require(cfg.DataMapping.IDColumn); err != nil {
		err = &sheet.DataSourceError{Source: src.Name(), Op: "columns", Err: err}
		a.log.Event(logging.StatusHalted, err.Error())
		return nil, nil, err
	}
	a.log.Event(logging.StatusSuccess, fmt.Sprintf("Data loaded: %d rows", tbl.Len()))

	b, err := report.NewBuilder(cfg, tbl.Headers)
	if err != nil {
		a.log.Event(logging.StatusCritical, "Configuration error: "+err.Error())
		return nil, nil, err
	}
	if dups := report.DuplicateDateColumns(tbl.Headers, cfg.DateRegexp()); len(dups) > 0 {
		a.log.Event(logging.StatusWarning, fmt.Sprintf("Date columns %q appear more than once; only the first of each is read", dups))
	}
	if multi := report.MultilineColumns(b.DateColumns); len(multi) > 0 {
		a.log.Event(logging.StatusWarning, fmt.Sprintf("Date column headers %q contain line breaks", multi))
	}
	if len(b.DateColumns) == 0 {
		a.log.Event(logging.StatusWarning, "No column matches the date pattern; every row will report no absences",
			zap.String("pattern", cfg.Patterns.DateRegex))
	}
	a.log.Event(logging.StatusEngine, fmt.Sprintf("Tracking %d date columns", len(b.DateColumns)),
		zap.Strings("columns", b.DateColumns))
	return tbl, b, nil
}

func (a *app) warnContacts(cfg *config.Config) {
	_, collisions, unnamed := cfg.ContactBook()
	keys := make([]string, 0, len(collisions))
	for key := range collisions {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		a.log.Event(logging.StatusWarning, fmt.Sprintf("Contacts %v share the name %q, phones merged", collisions[key], key))
	}
	for _, name := range unnamed {
		a.log.Event(logging.StatusWarning, fmt.Sprintf("Contact %q has no usable name and is ignored", name))
	}
}

func newSession(cfg *config.Config) *browser.Session {
	bc := browser.DefaultConfig()
	bc.UserDataDir = cfg.Browser.UserDataDir
	bc.Headless = cfg.Browser.Headless
	bc.Bin = cfg.Browser.Bin
	bc.DebuggerURL = cfg.Browser.DebuggerURL
	return browser.NewSession(bc)
}

// openChannel starts the browser and waits for WhatsApp Web to be usable.
func (a *app) openChannel(ctx context.Context, cfg *config.Config) (*whatsapp.Channel, func(), error) {
	session := newSession(cfg)
	if err := session.Start(ctx); err != nil {
		a.log.Event(logging.StatusCritical, "Cannot start browser: "+err.Error())
		return nil, nil, err
	}
	shutdown := func() {
		if err := session.Shutdown(); err != nil {
			a.log.Debug("browser shutdown", zap.Error(err))
		}
	}

	ch := whatsapp.NewChannel(session, whatsapp.ConfigFrom(cfg), a.log)
	if err := ch.WaitForLogin(ctx); err != nil {
		a.log.Event(logging.StatusHalted, "WhatsApp Web did not become ready: "+err.Error())
		shutdown()
		return nil, nil, err
	}
	return ch, shutdown, nil
}

func (a *app) runDelivery(cmd *cobra.Command, args []string) error {
	cfg, err := a.config()
	if err != nil {
		return err
	}
	if cfg.Logging.Console {
		printBanner(cmd.ErrOrStderr(), "attendance delivery")
	}

	ctx := cmd.Context()
	tbl, b, err := a.prepare(ctx, cfg)
	if err != nil {
		return err
	}

	ch, shutdown, err := a.openChannel(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	d := &dispatch.Dispatcher{Builder: b, Sender: ch, Log: a.log}
	sum, err := d.Run(ctx, tbl)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			a.log.Event(logging.StatusHalted, "Interrupted: "+sum.String(), sum.Fields()...)
		} else {
			a.log.Event(logging.StatusCritical, "Run aborted: "+err.Error(), sum.Fields()...)
		}
		return err
	}
	a.log.Event(logging.StatusFinished, "Process finished: "+sum.String(), sum.Fields()...)
	return nil
}

func (a *app) runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := a.browserConfig()
	if err != nil {
		return err
	}

	_, shutdown, err := a.openChannel(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer shutdown()

	a.log.Event(logging.StatusSuccess, "WhatsApp Web session saved",
		zap.String("user_data_dir", cfg.Browser.UserDataDir))
	return nil
}
