package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lvillar/certkit/config"
	"github.com/lvillar/certkit/sign"
	"github.com/lvillar/certkit/store"
	"github.com/lvillar/certkit/verify"
)

func newVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <cert-id>",
		Short: "Check a certificate id against the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}

			signer, err := sign.New(sign.Config{
				SecretKey: cfg.Signing.SecretKey,
				BaseURL:   cfg.Signing.BaseURL,
			})
			if err != nil {
				return err
			}

			st, err := store.OpenSQLite(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := verify.NewResolver(st, signer).Resolve(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !res.Found {
				fmt.Fprintf(out, "certificate %s: not found\n", args[0])
				return nil
			}
			status := "INVALID"
			if res.Valid {
				status = "valid"
			}
			fmt.Fprintf(out, "certificate %s: %s\n", res.Certificate.CertID, status)
			fmt.Fprintf(out, "  recipient:  %s\n", res.Certificate.RecipientName)
			fmt.Fprintf(out, "  course:     %s\n", res.Certificate.CourseName)
			fmt.Fprintf(out, "  issue date: %s\n", res.Certificate.IssueDate)
			fmt.Fprintf(out, "  issued at:  %s\n", res.Certificate.CreatedAt)
			return nil
		},
	}
}
