package main

import (
	"fmt"
	"time"

	"landledger/internal/app"
	"landledger/internal/config"
	"landledger/internal/ledger"

	"github.com/spf13/cobra"
)

var portionCmd = &cobra.Command{
	Use:   "portion",
	Short: "Manage portions, lease terms, and sales",
}

var portionRegisterCmd = &cobra.Command{
	Use:   "register NAME",
	Short: "Register a portion without dividing a land",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var landID *int64
		if cmd.Flags().Changed("land") {
			raw, _ := cmd.Flags().GetString("land")
			id, err := parseID(raw, "land")
			if err != nil {
				return err
			}
			landID = &id
		}
		ownerFlag, _ := cmd.Flags().GetString("owner")

		return withApp(cmd, "portion.register", args, func(a *app.LedgerApp, cfg *config.Config) error {
			var owner ledger.Address
			var err error
			if ownerFlag != "" {
				owner, err = ledger.ParseAddress(ownerFlag)
			} else {
				owner, err = resolveCaller(cfg)
			}
			if err != nil {
				return err
			}
			id, err := a.RegisterPortion(cmd.Context(), landID, args[0], owner)
			if err != nil {
				return fmt.Errorf("registering portion: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Registered portion #%d\n", id)
			return nil
		})
	},
}

var portionDocumentCmd = &cobra.Command{
	Use:   "document PORTION_ID FILE",
	Short: "Attach a document to a portion",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		portionID, err := parseID(args[0], "portion")
		if err != nil {
			return err
		}
		name, _ := cmd.Flags().GetString("name")

		return withApp(cmd, "portion.document", args, func(a *app.LedgerApp, cfg *config.Config) error {
			caller, err := resolveCaller(cfg)
			if err != nil {
				return err
			}
			docID, err := a.RegisterPortionDocument(cmd.Context(), caller, portionID, args[1], name)
			if err != nil {
				return fmt.Errorf("attaching document: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Attached document #%d to portion #%d\n", docID, portionID)
			return nil
		})
	},
}

// termsFromFlags reads the lease terms flags. A zero duration means perpetual.
func termsFromFlags(cmd *cobra.Command) (ledger.TermsInput, error) {
	f := cmd.Flags()
	price, _ := f.GetInt64("price")
	duration, _ := f.GetDuration("duration")
	production, _ := f.GetString("production")
	periodicity, _ := f.GetString("periodicity")
	qa, _ := f.GetInt64("quantity-a")
	qb, _ := f.GetInt64("quantity-b")

	if duration < 0 || duration%time.Second != 0 {
		return ledger.TermsInput{}, fmt.Errorf("%w: duration must be a non-negative whole number of seconds", ledger.ErrInvalidArgument)
	}
	return ledger.TermsInput{
		Price:              price,
		DurationSeconds:    int64(duration / time.Second),
		ExpectedProduction: production,
		Periodicity:        periodicity,
		QuantityA:          qa,
		QuantityB:          qb,
	}, nil
}

var portionTermsCmd = &cobra.Command{
	Use:   "terms PORTION_ID",
	Short: "Define the lease terms of a portion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		portionID, err := parseID(args[0], "portion")
		if err != nil {
			return err
		}
		terms, err := termsFromFlags(cmd)
		if err != nil {
			return err
		}

		return withApp(cmd, "portion.terms", args, func(a *app.LedgerApp, cfg *config.Config) error {
			caller, err := resolveCaller(cfg)
			if err != nil {
				return err
			}
			if err := a.DefineTerms(cmd.Context(), caller, portionID, terms); err != nil {
				return fmt.Errorf("defining terms: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Terms defined for portion #%d\n", portionID)
			return nil
		})
	},
}

var portionSellCmd = &cobra.Command{
	Use:   "sell PORTION_ID BUYER",
	Short: "Assign a new buyer to a portion",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		portionID, err := parseID(args[0], "portion")
		if err != nil {
			return err
		}
		buyer, err := ledger.ParseAddress(args[1])
		if err != nil {
			return err
		}
		var seller ledger.Address
		if raw, _ := cmd.Flags().GetString("seller"); raw != "" {
			if seller, err = ledger.ParseAddress(raw); err != nil {
				return err
			}
		}

		return withApp(cmd, "portion.sell", args, func(a *app.LedgerApp, cfg *config.Config) error {
			caller, err := resolveCaller(cfg)
			if err != nil {
				return err
			}
			if err := a.Sell(cmd.Context(), caller, portionID, seller, buyer); err != nil {
				return fmt.Errorf("selling portion: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Portion #%d sold to %s\n", portionID, buyer)
			return nil
		})
	},
}

var portionExpireCmd = &cobra.Command{
	Use:   "expire PORTION_ID",
	Short: "Clear the buyer of a portion whose lease has run out",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		portionID, err := parseID(args[0], "portion")
		if err != nil {
			return err
		}

		return withApp(cmd, "portion.expire", args, func(a *app.LedgerApp, _ *config.Config) error {
			if err := a.ExpireOwnership(cmd.Context(), portionID); err != nil {
				return fmt.Errorf("expiring ownership: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ownership of portion #%d expired\n", portionID)
			return nil
		})
	},
}

var portionShowCmd = &cobra.Command{
	Use:   "show PORTION_ID",
	Short: "Show a portion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		portionID, err := parseID(args[0], "portion")
		if err != nil {
			return err
		}

		return withApp(cmd, "portion.show", args, func(a *app.LedgerApp, _ *config.Config) error {
			p, err := a.Portions().GetByID(cmd.Context(), portionID)
			if err != nil {
				return err
			}
			printPortion(cmd.OutOrStdout(), p)
			return nil
		})
	},
}

var portionListCmd = &cobra.Command{
	Use:   "list",
	Short: "Count portions, or list them by owner, buyer, or land",
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetString("owner")
		buyer, _ := cmd.Flags().GetString("buyer")
		land, _ := cmd.Flags().GetString("land")

		return withApp(cmd, "portion.list", args, func(a *app.LedgerApp, _ *config.Config) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var (
				ids []int64
				err error
			)
			switch {
			case owner != "":
				var addr ledger.Address
				if addr, err = ledger.ParseAddress(owner); err == nil {
					ids, err = a.Portions().GetByOwner(ctx, addr)
				}
			case buyer != "":
				var addr ledger.Address
				if addr, err = ledger.ParseAddress(buyer); err == nil {
					ids, err = a.Portions().GetByBuyer(ctx, addr)
				}
			case land != "":
				var landID int64
				if landID, err = parseID(land, "land"); err == nil {
					ids, err = a.Portions().GetByLand(ctx, landID)
				}
			default:
				total, err := a.Portions().GetTotal(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%d portion(s) registered\n", total)
				return nil
			}
			if err != nil {
				return err
			}
			printIDs(out, "portions", ids)
			return nil
		})
	},
}

func init() {
	portionCmd.AddCommand(portionRegisterCmd)
	portionRegisterCmd.Flags().String("land", "", "Land id the portion belongs to")
	portionRegisterCmd.Flags().String("owner", "", "Owner address (default: caller)")
	portionCmd.AddCommand(portionDocumentCmd)
	portionDocumentCmd.Flags().String("name", "", "Document name (default: file name)")

	portionCmd.AddCommand(portionTermsCmd)
	portionTermsCmd.Flags().Int64("price", 0, "Lease price")
	portionTermsCmd.Flags().Duration("duration", 0, "Lease duration, e.g. 8760h (0 = perpetual)")
	portionTermsCmd.Flags().String("production", "", "Expected production")
	portionTermsCmd.Flags().String("periodicity", "", "Production periodicity")
	portionTermsCmd.Flags().Int64("quantity-a", 0, "First production quantity")
	portionTermsCmd.Flags().Int64("quantity-b", 0, "Second production quantity")

	portionCmd.AddCommand(portionSellCmd)
	portionSellCmd.Flags().String("seller", "", "Name the seller explicitly (must be the caller)")
	portionCmd.AddCommand(portionExpireCmd)
	portionCmd.AddCommand(portionShowCmd)
	portionCmd.AddCommand(portionListCmd)
	portionListCmd.Flags().String("owner", "", "List the portions of this owner")
	portionListCmd.Flags().String("buyer", "", "List the portions this address has bought")
	portionListCmd.Flags().String("land", "", "List the portions of this land")
}
