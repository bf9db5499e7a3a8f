package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/anaconda/packaging-utils/internal/config"
)

// ConfigCheck is the payload printed by `config validate`.
type ConfigCheck struct {
	Valid          bool     `json:"valid"`
	Email          string   `json:"email,omitempty"`
	HasGitHubToken bool     `json:"has_github_token"`
	HasJiraToken   bool     `json:"has_jira_token"`
	Problems       []string `json:"problems,omitempty"`
}

// NewConfigCommand creates the config command group.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the apu configuration",
	}
	cmd.AddCommand(newConfigValidateCommand(rootOpts))
	return cmd
}

func newConfigValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "validate",
		Short:         "Load the config file and report problems",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootOpts.Config)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}

			check := ConfigCheck{
				Email:          cfg.UserInfo.Email,
				HasGitHubToken: cfg.Token.GitHub != "",
				HasJiraToken:   cfg.Token.Jira != "",
			}
			for _, verr := range cfg.Validate() {
				check.Problems = append(check.Problems, verr.Error())
			}
			check.Valid = len(check.Problems) == 0

			formatter := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			if err := formatter.Success(check, func(w io.Writer) {
				if check.Valid {
					fmt.Fprintln(w, "config is valid")
				} else {
					for _, p := range check.Problems {
						fmt.Fprintln(w, p)
					}
				}
				fmt.Fprintf(w, "  email:         %s\n", orUnset(check.Email))
				fmt.Fprintf(w, "  github token:  %s\n", setOrUnset(check.HasGitHubToken))
				fmt.Fprintf(w, "  jira token:    %s\n", setOrUnset(check.HasJiraToken))
			}); err != nil {
				return err
			}

			if !check.Valid {
				return NewExitError(ExitFailure, "config validation failed")
			}
			return nil
		},
	}
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}

func setOrUnset(b bool) string {
	if b {
		return "set"
	}
	return "(unset)"
}
