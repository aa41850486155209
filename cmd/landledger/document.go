package main

import (
	"fmt"
	"io"
	"os"

	"landledger/internal/app"
	"landledger/internal/config"

	"github.com/spf13/cobra"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Inspect the document log",
}

var documentAddCmd = &cobra.Command{
	Use:   "add FILE",
	Short: "Append a file to the document log without attaching it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")

		return withApp(cmd, "document.add", args, func(a *app.LedgerApp, _ *config.Config) error {
			id, err := a.AddDocument(cmd.Context(), args[0], name)
			if err != nil {
				return fmt.Errorf("adding document: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added document #%d\n", id)
			return nil
		})
	},
}

var documentShowCmd = &cobra.Command{
	Use:   "show [DOCUMENT_ID]",
	Short: "Show a document entry, or the log size",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "document.show", args, func(a *app.LedgerApp, _ *config.Config) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				total, err := a.Documents().Total(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%d document(s) in the log\n", total)
				return nil
			}

			id, err := parseID(args[0], "document")
			if err != nil {
				return err
			}
			entry, err := a.Documents().Entry(ctx, id)
			if err != nil {
				return err
			}
			printDocument(out, entry)
			return nil
		})
	},
}

var documentGetCmd = &cobra.Command{
	Use:   "get DOCUMENT_ID",
	Short: "Write the verified content of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "document")
		if err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString("output")

		return withApp(cmd, "document.get", args, func(a *app.LedgerApp, _ *config.Config) (err error) {
			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.OpenFile(output, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
				if err != nil {
					return fmt.Errorf("creating output file: %w", err)
				}
				defer func() {
					if cerr := f.Close(); cerr != nil && err == nil {
						err = cerr
					}
					if err != nil {
						os.Remove(output)
					}
				}()
				w = f
			}

			prompt := func() (string, error) { return readPassphrase("Passphrase: ") }
			return a.DocumentContent(cmd.Context(), id, w, prompt)
		})
	},
}

func init() {
	documentCmd.AddCommand(documentAddCmd)
	documentAddCmd.Flags().String("name", "", "Document name (default: file name)")
	documentCmd.AddCommand(documentShowCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentGetCmd.Flags().StringP("output", "o", "", "Write to this file instead of stdout (never overwrites)")
}
