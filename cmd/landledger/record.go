package main

import (
	"fmt"

	"landledger/internal/app"
	"landledger/internal/config"
	"landledger/internal/ledger"

	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Register and certify production records",
}

// newRecordRegisterCmd builds `record product|activity|maintenance`.
func newRecordRegisterCmd(use string, kind ledger.RecordKind) *cobra.Command {
	return &cobra.Command{
		Use:   use + " PORTION_ID NAME",
		Short: fmt.Sprintf("Register a %s record against a portion", kind),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			portionID, err := parseID(args[0], "portion")
			if err != nil {
				return err
			}

			return withApp(cmd, "record."+use, args, func(a *app.LedgerApp, cfg *config.Config) error {
				operator, err := resolveCaller(cfg)
				if err != nil {
					return err
				}
				id, err := a.RegisterRecord(cmd.Context(), kind, operator, args[1], portionID)
				if err != nil {
					return fmt.Errorf("registering %s: %w", kind, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered %s #%d on portion #%d\n", kind, id, portionID)
				return nil
			})
		},
	}
}

var recordCertifyCmd = &cobra.Command{
	Use:   "certify KIND RECORD_ID TEXT",
	Short: "Certify a product or production activity",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := ledger.ParseRecordKind(args[0])
		if err != nil {
			return err
		}
		id, err := parseID(args[1], string(kind))
		if err != nil {
			return err
		}

		return withApp(cmd, "record.certify", args, func(a *app.LedgerApp, cfg *config.Config) error {
			caller, err := resolveCaller(cfg)
			if err != nil {
				return err
			}
			if err := a.Certify(cmd.Context(), kind, caller, id, args[2]); err != nil {
				return fmt.Errorf("certifying %s: %w", kind, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Certified %s #%d\n", kind, id)
			return nil
		})
	},
}

var recordShowCmd = &cobra.Command{
	Use:   "show KIND RECORD_ID",
	Short: "Show a record and its certifications",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := ledger.ParseRecordKind(args[0])
		if err != nil {
			return err
		}
		id, err := parseID(args[1], string(kind))
		if err != nil {
			return err
		}

		return withApp(cmd, "record.show", args, func(a *app.LedgerApp, _ *config.Config) error {
			registry, err := a.Records(kind)
			if err != nil {
				return err
			}
			rec, err := registry.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			printRecord(cmd.OutOrStdout(), rec)
			return nil
		})
	},
}

var recordListCmd = &cobra.Command{
	Use:   "list KIND",
	Short: "Count records of a kind, or list them by operator or portion",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := ledger.ParseRecordKind(args[0])
		if err != nil {
			return err
		}
		operator, _ := cmd.Flags().GetString("operator")
		portion, _ := cmd.Flags().GetString("portion")

		return withApp(cmd, "record.list", args, func(a *app.LedgerApp, _ *config.Config) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			registry, err := a.Records(kind)
			if err != nil {
				return err
			}

			var ids []int64
			switch {
			case operator != "":
				addr, err := ledger.ParseAddress(operator)
				if err != nil {
					return err
				}
				if ids, err = registry.GetByOperator(ctx, addr); err != nil {
					return err
				}
			case portion != "":
				portionID, err := parseID(portion, "portion")
				if err != nil {
					return err
				}
				if ids, err = registry.GetByPortion(ctx, portionID); err != nil {
					return err
				}
			default:
				total, err := registry.GetTotal(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%d %s record(s) registered\n", total, kind)
				return nil
			}
			printIDs(out, string(kind)+" records", ids)
			return nil
		})
	},
}

func init() {
	recordCmd.AddCommand(newRecordRegisterCmd("product", ledger.KindProduct))
	recordCmd.AddCommand(newRecordRegisterCmd("activity", ledger.KindProductionActivity))
	recordCmd.AddCommand(newRecordRegisterCmd("maintenance", ledger.KindMaintenance))
	recordCmd.AddCommand(recordCertifyCmd)
	recordCmd.AddCommand(recordShowCmd)
	recordCmd.AddCommand(recordListCmd)
	recordListCmd.Flags().String("operator", "", "List the records registered by this operator")
	recordListCmd.Flags().String("portion", "", "List the records of this portion")
}
