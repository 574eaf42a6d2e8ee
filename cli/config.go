package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/warp/flexpay-engine/config"
)

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and validate client configuration",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print a client's resolved configuration as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			clientID, err := requireFlag(cmd, "client")
			if err != nil {
				return err
			}
			st, source, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			resolved := config.NewResolver(source, a.logger).Resolve(cmd.Context(), clientID)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(resolved)
		},
	}
	show.Flags().String("client", "", "Client identifier (required)")

	validate := &cobra.Command{
		Use:   "validate",
		Short: "Strictly parse every client in --clients-file",
		Long: `Resolution falls back to defaults when a document is broken. validate
reports those documents instead, and exits non-zero when any are invalid.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := a.v.GetString(KeyClientsFile)
			if path == "" {
				return fmt.Errorf("--%s: %w", KeyClientsFile, errFlagRequired)
			}
			fs, err := config.LoadFileSource(path)
			if err != nil {
				return err
			}
			problems := validateClients(cmd, fs)
			if len(problems) > 0 {
				for _, p := range problems {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				return fmt.Errorf("%d invalid client documents", len(problems))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d clients ok\n", len(fs.ClientIDs()))
			return nil
		},
	}

	cmd.AddCommand(show, validate)
	return cmd
}

func validateClients(cmd *cobra.Command, fs *config.FileSource) []string {
	factory := config.NewFactory()
	ctx := cmd.Context()
	var problems []string
	for _, id := range fs.ClientIDs() {
		rec, err := fs.ClientConfig(ctx, id)
		if err == nil && rec != nil {
			_, _, _, err = factory.ParseClientConfig(rec.ConfigJSON)
		}
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", id, err))
		}

		rules, err := fs.IncentiveRules(ctx, id)
		if err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", id, err))
			continue
		}
		var ruleErrs []error
		for _, rr := range rules {
			if _, err := factory.ParseIncentiveRule(rr.RuleJSON); err != nil {
				ruleErrs = append(ruleErrs, err)
			}
		}
		if err := errors.Join(ruleErrs...); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", id, err))
		}
	}
	return problems
}
