package cli

import (
	"encoding/json"
	"time"

	"github.com/spf13/cobra"

	"github.com/iliyamo/depot-yard/internal/utils"
)

func newTokenCmd() *cobra.Command {
	var (
		sub  string
		role string
		ttl  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed access token for the configured secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			tok, err := utils.NewAccessToken(cfg.JWT.Secret, sub, role, ttl)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(tok)
		},
	}

	cmd.Flags().StringVar(&sub, "sub", "", "operator id recorded as the actor (required)")
	cmd.Flags().StringVar(&role, "role", utils.RoleOperator, "OPERATOR, SUPERVISOR or VIEWER")
	cmd.Flags().DurationVar(&ttl, "ttl", 8*time.Hour, "token lifetime")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}
