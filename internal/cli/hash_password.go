package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/linkshelf/internal/gate"
)

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print a bcrypt hash for admin_password_hash",
		Long: `Hash-password prints the bcrypt hash of a password. With no argument the
password is read from the first line of stdin.

Example:
  linkshelf hash-password s3cret
  echo s3cret | linkshelf hash-password`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string
			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return exitError(exitUserError, "read password: %s", err)
				}
				password = strings.TrimRight(line, "\r\n")
			}
			hash, err := gate.HashPassword(password)
			if err != nil {
				return exitError(exitUserError, "%s", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
}
