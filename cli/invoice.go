package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/warp/flexpay-engine/config"
	"github.com/warp/flexpay-engine/engine"
	"github.com/warp/flexpay-engine/invoice"
	"go.uber.org/zap"
)

// Output file names written to --out-dir.
const (
	MainInvoiceFile       = "main_invoice.csv"
	MicroInvoiceFile      = "micro_invoice.csv"
	MainProductivityFile  = "main_productivity.csv"
	MicroProductivityFile = "micro_productivity.csv"
	InvoiceRejectionsFile = "invoice_rejections.csv"
)

func (a *app) invoiceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Reconcile payroll output against invoice detail extracts",
		Long: `Reads the current (and optionally previous) payroll output and up to four
weekly invoice detail extracts, then writes the main and microhospital
invoice detail and productivity files to --out-dir. Micro files are only
written when the run has microhospital lines.`,
		RunE: a.runInvoice,
	}
	f := cmd.Flags()
	f.String("client", "", "Client identifier (required)")
	f.String("current", "", "Current payroll output (required)")
	f.String("previous", "", "Previous payroll output")
	f.StringArray("detail", nil, "Invoice detail extract, in period order (repeat up to 4 times)")
	f.String("facility-crosswalk", "", "Facility crosswalk (Company Code, Facility Name)")
	f.String("out-dir", ".", "Directory for the output files")
	f.Int("start-sequence", 1, "First invoice sequence number")
	f.String("issued-at", "", "Issue date for invoice number templates (YYYY-MM-DD, default today)")
	return cmd
}

func (a *app) runInvoice(cmd *cobra.Command, _ []string) error {
	clientID, err := requireFlag(cmd, "client")
	if err != nil {
		return err
	}
	currentPath, err := requireFlag(cmd, "current")
	if err != nil {
		return err
	}
	previousPath, _ := cmd.Flags().GetString("previous")
	detailPaths, _ := cmd.Flags().GetStringArray("detail")
	facilityPath, _ := cmd.Flags().GetString("facility-crosswalk")
	outDir, _ := cmd.Flags().GetString("out-dir")
	startSeq, _ := cmd.Flags().GetInt("start-sequence")
	issuedAtStr, _ := cmd.Flags().GetString("issued-at")

	if len(detailPaths) > invoice.DetailPeriods {
		return fmt.Errorf("--detail: at most %d extracts, got %d", invoice.DetailPeriods, len(detailPaths))
	}
	if startSeq < 1 {
		return fmt.Errorf("--start-sequence must be positive, got %d", startSeq)
	}

	req := engine.InvoiceRequest{ClientID: clientID, StartSequence: startSeq}
	if issuedAtStr != "" {
		if req.IssuedAt, err = time.Parse("2006-01-02", issuedAtStr); err != nil {
			return fmt.Errorf("--issued-at: %w", err)
		}
	}

	files := &openFiles{}
	defer files.Close()
	req.Current = files.open(currentPath)
	req.Previous = files.open(previousPath)
	req.Facilities = files.open(facilityPath)
	for i, p := range detailPaths {
		req.Details[i] = files.open(p)
	}
	if files.err != nil {
		return files.err
	}

	st, source, err := a.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	runner := engine.NewRunner(config.NewResolver(source, a.logger), st, a.logger)
	run, err := runner.Invoice(cmd.Context(), req)
	if err != nil {
		return err
	}
	res := run.Result

	outputs := map[string]string{
		MainInvoiceFile:      res.MainInvoiceCSV,
		MainProductivityFile: res.MainProductivityCSV,
	}
	if res.HasMicrohospitals {
		outputs[MicroInvoiceFile] = res.MicroInvoiceCSV
		outputs[MicroProductivityFile] = res.MicroProductivityCSV
	}
	for name, text := range outputs {
		if err := writeText(nil, filepath.Join(outDir, name), text); err != nil {
			return err
		}
	}
	if len(res.Rejections) > 0 {
		if err := writeCSV(filepath.Join(outDir, InvoiceRejectionsFile), res.Rejections); err != nil {
			return err
		}
	}

	fmt.Fprintln(cmd.OutOrStdout(), res.InvoiceNumber)
	a.logger.Info("invoice written",
		zap.String("client_id", clientID),
		zap.String("run_id", run.RunID),
		zap.String("invoice_number", res.InvoiceNumber),
		zap.Int("main_lines", len(res.MainInvoiceDetail)),
		zap.Int("micro_lines", len(res.MicroInvoiceDetail)),
		zap.Int("rejected", len(res.Rejections)))
	return nil
}
