package main

import (
	"github.com/spf13/cobra"

	"github.com/lvillar/certkit/config"
	"github.com/lvillar/certkit/server"
	"github.com/lvillar/certkit/sign"
	"github.com/lvillar/certkit/store"
	"github.com/lvillar/certkit/verify"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the certificate verification API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			logger, err := cfg.NewLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

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

			srv := server.New(verify.NewResolver(st, signer), logger)
			return srv.Run(cfg.Server.Addr())
		},
	}
}
