package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lvillar/certkit"
	"github.com/lvillar/certkit/batch"
	"github.com/lvillar/certkit/config"
	"github.com/lvillar/certkit/dataset"
	"github.com/lvillar/certkit/render"
	"github.com/lvillar/certkit/sign"
	"github.com/lvillar/certkit/store"
	"github.com/lvillar/certkit/symbol"
)

func newGenerateCmd() *cobra.Command {
	var (
		templatePath  string
		dataPath      string
		outPath       string
		signaturePath string
		position      string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render and sign one certificate per dataset row",
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

			templateData, err := os.ReadFile(templatePath)
			if err != nil {
				return err
			}
			tmpl, err := render.LoadTemplate(templateData)
			if err != nil {
				return err
			}

			ds, err := dataset.ReadCSVFile(dataPath)
			if err != nil {
				return err
			}

			opts := cfg.Options()
			if position != "" {
				if p := certkit.SymbolPosition(position); p.Valid() {
					opts.SymbolPosition = p
				} else {
					return fmt.Errorf("unknown symbol position %q", position)
				}
			}
			if signaturePath != "" {
				sig, err := os.ReadFile(signaturePath)
				if err != nil {
					return err
				}
				opts.SignatureImage = sig
			}

			st, err := store.OpenSQLite(cfg.Store.Path)
			if err != nil {
				return err
			}
			defer st.Close()

			proc, err := batch.New(batch.Config{
				Template: tmpl,
				Signer:   signer,
				Store:    st,
				Options:  opts,
				Format:   symbol.Format(cfg.Render.SymbolFormat),
				Logger:   logger,
			})
			if err != nil {
				return err
			}

			res, err := proc.Run(cmd.Context(), ds)
			if err != nil {
				return err
			}

			out, err := os.Create(outPath)
			if err != nil {
				return err
			}
			defer out.Close()
			if err := batch.WriteZip(out, res); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "batch %s: %d succeeded, %d failed -> %s\n",
				res.BatchID, res.Succeeded, res.Failed, outPath)
			for _, rr := range res.Rows {
				if rr.Err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "  row %d failed: %v\n", rr.Index+1, rr.Err)
				}
			}
			if res.Report.HasGaps() {
				fmt.Fprintf(cmd.OutOrStdout(), "  unmatched placeholders: %v\n", res.Report.UnmatchedPlaceholders)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&templatePath, "template", "t", "", "template PDF path")
	cmd.Flags().StringVarP(&dataPath, "data", "d", "", "dataset CSV path")
	cmd.Flags().StringVarP(&outPath, "out", "o", "certificates.zip", "output zip path")
	cmd.Flags().StringVar(&signaturePath, "signature", "", "optional signature PNG to overlay")
	cmd.Flags().StringVar(&position, "position", "", "symbol corner (bottom-right, bottom-left, top-right, top-left)")
	cmd.MarkFlagRequired("template")
	cmd.MarkFlagRequired("data")
	return cmd
}
