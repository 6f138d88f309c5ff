package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/config"
	"rollcall/internal/sheet"
)

const attendanceCSV = "Name,01/03,02/03,Notes\n" +
	"Ana,X,J,late once\n" +
	"José,,,\n" +
	"Zoe,X,,\n" +
	",X,X,\n" +
	"Bruno,P,?,\n"

// writeWorkspace creates a CSV-backed configuration and returns its path.
func writeWorkspace(t *testing.T, mutate func(cfg *config.Config)) string {
	t.Helper()
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "attendance.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(attendanceCSV), 0644))

	cfg := config.DefaultConfig()
	cfg.Spreadsheet.Source = config.SourceCSV
	cfg.Spreadsheet.File = csvPath
	cfg.Contacts = map[string][]string{
		"Ana":   {"+55 11 99999-9999"},
		"Jose":  {"5511888888888"},
		"Bruno": {"5521777777777"},
	}
	cfg.Messages.HeaderWithAbsences = "Hi {name},"
	cfg.Messages.FooterWithAbsences = "See you."
	cfg.Messages.NoAbsences = "Well done {name}, no absences in {month}."
	cfg.Messages.PeriodLabel = "March"
	cfg.DataMapping = config.DataMappingConfig{IDColumn: "Name", NegativeValue: "x", JustifiedValue: "j"}
	cfg.Patterns.DateRegex = `^\d{2}/\d{2}$`
	cfg.Logging.File = filepath.Join(dir, "data", "logs.txt")
	if mutate != nil {
		mutate(cfg)
	}

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, cfg.Save(path))
	return path
}

func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	root, a := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.ExecuteContext(context.Background())
	a.close()
	return out.String(), errOut.String(), err
}

func TestVersionCmd(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "rollcall dev\n", out)
}

func TestPreviewCmd(t *testing.T) {
	path := writeWorkspace(t, nil)

	out, console, err := execute(t, "preview", "--config", path)
	require.NoError(t, err)

	assert.Contains(t, out, "+5511999999999")
	assert.Contains(t, out, "Hi Ana,")
	assert.Contains(t, out, "• 01/03")
	assert.Contains(t, out, "• 02/03")
	assert.Contains(t, out, "+5511888888888")
	assert.Contains(t, out, "Well done José, no absences in March.")
	assert.NotContains(t, out, "Zoe")

	// Unrecognised tracked values are reported.
	assert.Contains(t, out, "Values counted as present:")
	assert.Contains(t, out, `"P"`)
	assert.Contains(t, out, `"?"`)

	assert.Contains(t, console, "SUCCESS    | Data loaded: 5 rows")
	assert.Contains(t, console, "SKIPPING   | No contact for: Zoe")
	assert.Contains(t, console, "PREVIEW    | To: Ana             | +5511999999999")
	assert.Contains(t, console, "FINISHED   | Preview finished: 5 rows, 0 sent, 0 failed, 2 skipped, 3 previewed")
	assert.NotContains(t, console, "SENDING")
	assert.NotContains(t, console, "DONE")
}

func TestPreviewCmd_Check(t *testing.T) {
	path := writeWorkspace(t, nil)

	out, _, err := execute(t, "preview", "--check", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "All messages verified.")
}

func TestPreviewCmd_LogFile(t *testing.T) {
	path := writeWorkspace(t, nil)

	_, _, err := execute(t, "preview", "--config", path)
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(filepath.Dir(path), "data", "logs.txt"))
	require.NoError(t, err)
	defer f.Close()

	runs := map[string]bool{}
	statuses := map[string]int{}
	var finished map[string]interface{}
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e map[string]interface{}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		runs[e["run"].(string)] = true
		statuses[e["status"].(string)]++
		if e["status"] == "FINISHED" {
			finished = e
		}
	}
	require.NoError(t, sc.Err())
	assert.Len(t, runs, 1)

	// A preview never records a delivery.
	assert.Zero(t, statuses["SENDING"])
	assert.Zero(t, statuses["DONE"])
	assert.Equal(t, 3, statuses["PREVIEW"])

	require.NotNil(t, finished)
	assert.EqualValues(t, 0, finished["sent"])
	assert.EqualValues(t, 3, finished["previewed"])
}

func TestRunCmd_InvalidConfig(t *testing.T) {
	path := writeWorkspace(t, func(cfg *config.Config) {
		cfg.Contacts = nil
	})

	_, console, err := execute(t, "run", "--config", path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalidConfig))
	assert.Contains(t, console, "CRITICAL   | Configuration error:")
}

func TestRunCmd_MissingConfig(t *testing.T) {
	// The default log file is relative to the working directory.
	t.Chdir(t.TempDir())

	_, _, err := execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, config.ErrInvalidConfig))
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestRunCmd_MissingIDColumn(t *testing.T) {
	path := writeWorkspace(t, func(cfg *config.Config) {
		cfg.DataMapping.IDColumn = "Student"
	})

	_, console, err := execute(t, "run", "--config", path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sheet.ErrDataSource))
	assert.Contains(t, console, "HALTED")
	assert.Contains(t, err.Error(), "Student")
}

func TestRunCmd_UnreadableSource(t *testing.T) {
	path := writeWorkspace(t, func(cfg *config.Config) {
		cfg.Spreadsheet.File = filepath.Join(filepath.Dir(cfg.Spreadsheet.File), "gone.csv")
	})

	_, _, err := execute(t, "run", "--config", path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sheet.ErrDataSource))
}

func TestContactCollisionsWarn(t *testing.T) {
	path := writeWorkspace(t, func(cfg *config.Config) {
		cfg.Contacts["ANA"] = []string{"5511000000000"}
	})

	out, console, err := execute(t, "preview", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, console, "WARNING    | Contacts [ANA Ana] share the name \"ana\", phones merged")
	assert.Equal(t, 2, strings.Count(out, "Hi Ana,"))
}

func TestContactWithoutNameWarns(t *testing.T) {
	path := writeWorkspace(t, func(cfg *config.Config) {
		cfg.Contacts["  "] = []string{"5511000000000"}
	})

	_, console, err := execute(t, "preview", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, console, `WARNING    | Contact "  " has no usable name and is ignored`)
}

func TestDuplicateDateColumnsWarn(t *testing.T) {
	path := writeWorkspace(t, func(cfg *config.Config) {
		cfg.Patterns.DateRegex = `^\d{2}/\d{2}`
	})
	csvPath := filepath.Join(filepath.Dir(path), "attendance.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("Name,01/03,01/03,\"02/03\nMon\"\nAna,,X,J\n"), 0644))

	out, console, err := execute(t, "preview", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, console, `WARNING    | Date columns ["01/03"] appear more than once; only the first of each is read`)
	assert.Contains(t, console, `WARNING    | Date column headers ["02/03\nMon"] contain line breaks`)
	assert.Contains(t, console, "Tracking 2 date columns")
	assert.Contains(t, out, "• 02/03")
}
