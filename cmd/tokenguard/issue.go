package main

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/MrEthical07/tokenguard"
	"github.com/MrEthical07/tokenguard/internal/config"
	"github.com/MrEthical07/tokenguard/revocation"
	"github.com/spf13/cobra"
)

type issueOutput struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	TokenID   string    `json:"jti"`
	ExpiresAt time.Time `json:"expires_at"`
}

func newIssueCmd(root *rootOptions) *cobra.Command {
	var p tokenguard.Principal

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Sign a token for a subject with the configured secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(root.configFile, root.envFiles...)
			if err != nil {
				return err
			}
			// Issuance never touches the revocation backend.
			cfg.Revocation.Backend = "memory"
			cfg.Audit.Sink = "none"
			return issue(cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, p)
		},
	}
	cmd.Flags().StringVar(&p.ID, "subject", "", "token subject (user id)")
	cmd.Flags().StringVar(&p.Username, "username", "", "display username claim")
	cmd.Flags().StringVar(&p.Email, "email", "", "display email claim")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func issue(out, logOut io.Writer, cfg *config.ServiceConfig, p tokenguard.Principal) error {
	logger, err := newLogger(cfg.Logging, logOut)
	if err != nil {
		return err
	}
	engine, err := buildEngine(cfg, revocation.NewMemoryStore(nil), logger, false)
	if err != nil {
		return err
	}
	defer engine.Close()

	issued, err := engine.Issue(context.Background(), p)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(issueOutput{
		Token:     issued.Token,
		TokenType: issued.TokenType,
		TokenID:   issued.TokenID,
		ExpiresAt: issued.ExpiresAt.UTC(),
	})
}
