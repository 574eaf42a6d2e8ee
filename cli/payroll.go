package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/flexpay-engine/config"
	"github.com/warp/flexpay-engine/engine"
	"github.com/warp/flexpay-engine/ingest"
	"github.com/warp/flexpay-engine/output"
	"github.com/warp/flexpay-engine/timecard"
	"go.uber.org/zap"
)

func (a *app) payrollCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payroll",
		Short: "Transform time-clock extracts into a payroll upload file",
		Long: `Reads the timecard extract, optional manual adds and the employee
crosswalk (CSV or XLSX), applies the client's configuration and writes the
payroll CSV. Rows dropped for a missing internal ID or clock GUID can be
written to a separate rejections file.`,
		RunE: a.runPayroll,
	}
	f := cmd.Flags()
	f.String("client", "", "Client identifier (required)")
	f.String("timecards", "", "Timecard extract (required)")
	f.String("manual-adds", "", "Manual adds extract")
	f.String("crosswalk", "", "Employee crosswalk (required)")
	f.String("field-map", "", "YAML field map overlaying the client's")
	f.String("out", "", "Payroll CSV path (default stdout)")
	f.String("rejections", "", "Write rejected rows to this CSV")
	f.String("run-date", "", "Run date for incentive expiry (YYYY-MM-DD, default today)")
	return cmd
}

func (a *app) runPayroll(cmd *cobra.Command, _ []string) error {
	clientID, err := requireFlag(cmd, "client")
	if err != nil {
		return err
	}
	tcPath, err := requireFlag(cmd, "timecards")
	if err != nil {
		return err
	}
	xwPath, err := requireFlag(cmd, "crosswalk")
	if err != nil {
		return err
	}
	manualPath, _ := cmd.Flags().GetString("manual-adds")
	fieldMapPath, _ := cmd.Flags().GetString("field-map")
	outPath, _ := cmd.Flags().GetString("out")
	rejectionsPath, _ := cmd.Flags().GetString("rejections")
	runDateStr, _ := cmd.Flags().GetString("run-date")

	req := engine.PayrollRequest{ClientID: clientID}
	if runDateStr != "" {
		if req.RunDate, err = time.Parse("2006-01-02", runDateStr); err != nil {
			return fmt.Errorf("--run-date: %w", err)
		}
	}
	if fieldMapPath != "" {
		if req.FieldMap, err = ingest.LoadFieldMap(fieldMapPath); err != nil {
			return err
		}
	}

	files := &openFiles{}
	defer files.Close()
	req.Timecards = files.open(tcPath)
	req.ManualAdds = files.open(manualPath)
	req.Crosswalk = files.open(xwPath)
	if files.err != nil {
		return files.err
	}

	st, source, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runner := engine.NewRunner(config.NewResolver(source, a.logger), st, a.logger)
	run, err := runner.Payroll(cmd.Context(), req)
	if err != nil {
		return err
	}

	if err := writeText(cmd.OutOrStdout(), outPath, run.CSV); err != nil {
		return err
	}
	if rejectionsPath != "" {
		if err := writeCSV(rejectionsPath, run.Result.Rejections); err != nil {
			return err
		}
	}

	stats := run.Result.Stats
	a.logger.Info("payroll written",
		zap.String("client_id", clientID),
		zap.String("run_id", run.RunID),
		zap.Int("rows", stats.OutputRows),
		zap.Int("rejected", stats.RejectedRows),
		zap.Bool("config_defaulted", run.Config.Defaulted))
	return nil
}

// =============================================================================
// FILE HELPERS
// =============================================================================

// openFiles opens extracts and remembers the first failure.
type openFiles struct {
	files []*os.File
	err   error
}

// open returns nil for an empty path.
func (o *openFiles) open(path string) *engine.File {
	if path == "" || o.err != nil {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		o.err = timecard.Fail(ingest.StageIngest, fmt.Sprintf("failed to open %s", filepath.Base(path)), err)
		return nil
	}
	o.files = append(o.files, f)
	return &engine.File{Name: filepath.Base(path), Body: f}
}

func (o *openFiles) Close() {
	for _, f := range o.files {
		f.Close()
	}
}

// writeText writes text to path, or to stdout when path is empty.
func writeText(stdout io.Writer, path, text string) error {
	if path == "" {
		_, err := io.WriteString(stdout, text)
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

func writeCSV[T any](path string, records []T) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := output.Write(f, records); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
