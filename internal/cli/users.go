package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/R3E-Network/thrones_api/internal/app/runtime"
	"github.com/R3E-Network/thrones_api/internal/app/services/accounts"
	"github.com/R3E-Network/thrones_api/internal/config"
	"github.com/R3E-Network/thrones_api/internal/errors"
)

type legacyUser struct {
	Password string `json:"password"`
	Role     string `json:"role"`
}

// NewImportUsersCommand creates the import-users command.
func NewImportUsersCommand(rootOpts *RootOptions) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "import-users --from <users.json>",
		Short: "Hash and import users from a plaintext users file",
		Long: `Hash and import users from a plaintext users file.

The input is a JSON object keyed by username whose entries hold a plaintext
"password" and a "role". Each user is stored in the configured credential
backend with a bcrypt hash. Existing usernames and entries that already hold
a bcrypt hash are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := rootOpts.readConfig()
			if err != nil {
				return err
			}
			return runImportUsers(cmd, cfg, rootOpts, from)
		},
	}

	cmd.Flags().StringVarP(&from, "from", "f", "", "JSON file holding plaintext users")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func runImportUsers(cmd *cobra.Command, cfg *config.Config, rootOpts *RootOptions, from string) error {
	out := NewPrinter(cmd.OutOrStdout())

	data, err := os.ReadFile(from)
	if err != nil {
		return err
	}
	var users map[string]legacyUser
	if err := json.Unmarshal(data, &users); err != nil {
		return fmt.Errorf("%s: expected a JSON object of users: %w", from, err)
	}

	ctx := cmd.Context()
	log := rootOpts.logger(cfg)
	store, err := runtime.BuildCredentialStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	if c, ok := store.(io.Closer); ok {
		defer c.Close()
	}

	var opts []accounts.Option
	if cfg.Auth.BcryptCost > 0 {
		opts = append(opts, accounts.WithBcryptCost(cfg.Auth.BcryptCost))
	}
	svc := accounts.New(store, nil, log, opts...)

	names := make([]string, 0, len(users))
	for name := range users {
		names = append(names, name)
	}
	sort.Strings(names)

	imported, skipped := 0, 0
	for _, name := range names {
		user := users[name]
		if _, err := bcrypt.Cost([]byte(user.Password)); err == nil {
			out.Warning("%s: password is already hashed, skipping", name)
			skipped++
			continue
		}
		err := svc.Import(ctx, name, user.Password, user.Role)
		switch {
		case err == nil:
			imported++
		case errors.HasCode(err, errors.CodeUsernameTaken):
			out.Warning("%s: already registered, skipping", name)
			skipped++
		default:
			out.Error("%s: %v", name, err)
			return err
		}
	}
	out.Success("imported %d users, skipped %d", imported, skipped)
	return nil
}
