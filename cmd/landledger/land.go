package main

import (
	"fmt"

	"landledger/internal/app"
	"landledger/internal/config"
	"landledger/internal/ledger"

	"github.com/spf13/cobra"
)

var landCmd = &cobra.Command{
	Use:   "land",
	Short: "Register, document, and divide lands",
}

var landRegisterCmd = &cobra.Command{
	Use:   "register NAME",
	Short: "Register a land owned by the caller",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "land.register", args, func(a *app.LedgerApp, cfg *config.Config) error {
			caller, err := resolveCaller(cfg)
			if err != nil {
				return err
			}
			id, err := a.RegisterLand(cmd.Context(), caller, args[0])
			if err != nil {
				return fmt.Errorf("registering land: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered land #%d\n", id)
			return nil
		})
	},
}

var landDocumentCmd = &cobra.Command{
	Use:   "document LAND_ID FILE",
	Short: "Attach a document to a land",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		landID, err := parseID(args[0], "land")
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")

		return withApp(cmd, "land.document", args, func(a *app.LedgerApp, cfg *config.Config) error {
			caller, err := resolveCaller(cfg)
			if err != nil {
				return err
			}
			docID, err := a.RegisterLandDocument(cmd.Context(), caller, landID, args[1], name)
			if err != nil {
				return fmt.Errorf("attaching document: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Attached document #%d to land #%d\n", docID, landID)
			return nil
		})
	},
}

var landDivideCmd = &cobra.Command{
	Use:   "divide LAND_ID PORTION_NAME [FILE...]",
	Short: "Divide a land into a portion owned by the caller",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		landID, err := parseID(args[0], "land")
		if err != nil {
			return err
		}

		return withApp(cmd, "land.divide", args, func(a *app.LedgerApp, cfg *config.Config) error {
			caller, err := resolveCaller(cfg)
			if err != nil {
				return err
			}
			portionID, err := a.DivideLand(cmd.Context(), caller, landID, args[1], args[2:])
			if err != nil {
				return fmt.Errorf("dividing land: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Land #%d divided into portion #%d\n", landID, portionID)
			return nil
		})
	},
}

var landShowCmd = &cobra.Command{
	Use:   "show LAND_ID",
	Short: "Show a land",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		landID, err := parseID(args[0], "land")
		if err != nil {
			return err
		}

		return withApp(cmd, "land.show", args, func(a *app.LedgerApp, _ *config.Config) error {
			ctx := cmd.Context()
			land, err := a.Lands().GetByID(ctx, landID)
			if err != nil {
				return err
			}
			portions, err := a.Portions().GetByLand(ctx, landID)
			if err != nil {
				return err
			}
			printLand(cmd.OutOrStdout(), land, portions)
			return nil
		})
	},
}

var landListCmd = &cobra.Command{
	Use:   "list",
	Short: "Count lands, or list the lands of an owner",
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetString("owner")

		return withApp(cmd, "land.list", args, func(a *app.LedgerApp, _ *config.Config) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if owner == "" {
				total, err := a.Lands().GetTotal(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%d land(s) registered\n", total)
				return nil
			}

			addr, err := ledger.ParseAddress(owner)
			if err != nil {
				return err
			}
			ids, err := a.Lands().GetByOwner(ctx, addr)
			if err != nil {
				return err
			}
			printIDs(out, "lands", ids)
			return nil
		})
	},
}

func init() {
	landCmd.AddCommand(landRegisterCmd)
	landCmd.AddCommand(landDocumentCmd)
	landDocumentCmd.Flags().String("name", "", "Document name (default: file name)")
	landCmd.AddCommand(landDivideCmd)
	landCmd.AddCommand(landShowCmd)
	landCmd.AddCommand(landListCmd)
	landListCmd.Flags().String("owner", "", "List the lands of this owner")
}
