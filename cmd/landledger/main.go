package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"landledger/internal/app"
	"landledger/internal/config"
	"landledger/internal/httpapi"
	"landledger/internal/ledger"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := app.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// callerFlag holds the global --as flag.
var callerFlag string

func loadConfig() (*config.Config, error) {
	defaults, err := app.GetDefaults()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}
	cfg, err := config.ReadFromFile(defaults["config_path"])
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return cfg, nil
}

// withApp reads the config, opens a LedgerApp for operation, runs fn, and
// closes the app. A close failure (e.g. snapshot upload) is reported if fn succeeded.
func withApp(cmd *cobra.Command, operation string, args []string, fn func(a *app.LedgerApp, cfg *config.Config) error) (err error) {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := app.NewLedgerApp(ctx, cfg, operation, app.FormatParameters(args...))
	if err != nil {
		return fmt.Errorf("initializing app: %w", err)
	}
	defer func() {
		if cerr := a.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(a, cfg)
}

// resolveCaller returns the --as address, falling back to the configured identity.
func resolveCaller(cfg *config.Config) (ledger.Address, error) {
	raw := callerFlag
	if raw == "" {
		raw = cfg.Identity
	}
	if raw == "" {
		return "", fmt.Errorf("no caller: pass --as ADDRESS or set identity in config")
	}
	return ledger.ParseAddress(raw)
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: %s id %q must be a non-negative integer", ledger.ErrInvalidArgument, what, s)
	}
	return id, nil
}

// readPassphrase prompts on the terminal. LANDLEDGER_PASSPHRASE takes
// precedence for non-interactive use.
func readPassphrase(prompt string) (string, error) {
	if p := os.Getenv("LANDLEDGER_PASSPHRASE"); p != "" {
		return p, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("stdin is not a terminal; set LANDLEDGER_PASSPHRASE")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading passphrase: %w", err)
	}
	return string(b), nil
}

var rootCmd = &cobra.Command{
	Use:          "landledger",
	Short:        "Land tenure and agricultural production registry",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		ledgerID := uuid.New().String()
		cfg := config.NewConfig(ledgerID, defaults["base_dir"])
		vaultType, _ := cmd.Flags().GetString("vault")
		switch vaultType {
		case "filesystem":
			cfg.Vaults = []config.VaultConfig{{Type: "filesystem", Name: "local", FSVaultRoot: filepath.Join(defaults["base_dir"], "vault")}}
		case "s3":
			bucket, _ := cmd.Flags().GetString("bucket")
			region, _ := cmd.Flags().GetString("region")
			cfg.Vaults = []config.VaultConfig{{Type: "s3", Name: "s3", S3Bucket: bucket, S3Region: region, S3Prefix: ledgerID}}
		default:
			return fmt.Errorf("unsupported vault type %q", vaultType)
		}
		cfg.Identity, _ = cmd.Flags().GetString("identity")

		if err := config.Init(defaults["config_path"], cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration initialized at %s\n", defaults["config_path"])
		fmt.Fprintf(out, "Ledger ID: %s\n", ledgerID)
		fmt.Fprintf(out, "Base Dir:  %s\n", defaults["base_dir"])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		defaults, err := app.GetDefaults()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		cfg, err := config.ReadFromFile(defaults["config_path"])
		if err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Configuration from %s:\n\n", defaults["config_path"])
		fmt.Fprintf(out, "Ledger ID:   %s\n", cfg.LedgerID)
		fmt.Fprintf(out, "Base Dir:    %s\n", cfg.BaseDir)
		fmt.Fprintf(out, "Log Dir:     %s\n", cfg.LogDir)
		fmt.Fprintf(out, "Identity:    %s\n", cfg.Identity)
		fmt.Fprintf(out, "Strict Sell: %t\n", cfg.StrictSell)
		fmt.Fprintf(out, "Database:    %s %s\n", cfg.Database.Type, cfg.Database.DataDir)
		fmt.Fprintf(out, "Encryption:  %t\n", cfg.Encryption.Enabled)
		fmt.Fprintf(out, "Server:      %s\n", cfg.ServerAddr())
		for _, v := range cfg.Vaults {
			fmt.Fprintf(out, "Vault:       %s (%s)\n", v.Name, v.Type)
		}
		return nil
	},
}

var configVaultCmd = &cobra.Command{
	Use:   "vault",
	Short: "Manage vault",
}

var configVaultCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the vault is reachable and writable",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "config.vault.check", nil, func(a *app.LedgerApp, cfg *config.Config) error {
			if err := a.ValidateVault(cmd.Context()); err != nil {
				return fmt.Errorf("vault check failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Vault %s is ready\n", cfg.Vaults[0].Name)
			return nil
		})
	},
}

var configEncryptionCmd = &cobra.Command{
	Use:   "encryption",
	Short: "Manage document encryption",
}

var configEncryptionInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate the encryption key pair",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, "config.encryption.init", nil, func(a *app.LedgerApp, cfg *config.Config) error {
			pass, err := readPassphrase("New passphrase: ")
			if err != nil {
				return err
			}
			if os.Getenv("LANDLEDGER_PASSPHRASE") == "" {
				confirm, err := readPassphrase("Confirm passphrase: ")
				if err != nil {
					return err
				}
				if confirm != pass {
					return fmt.Errorf("passphrases do not match")
				}
			}
			if err := a.SetupEncryption(pass); err != nil {
				return fmt.Errorf("setting up encryption: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Keys written to %s and %s\n", cfg.Encryption.PublicKeyPath, cfg.Encryption.PrivateKeyPath)
			return nil
		})
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View ledger operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		return withApp(cmd, "history", nil, func(a *app.LedgerApp, _ *config.Config) error {
			ops, err := a.GetHistory(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(ops) == 0 {
				fmt.Fprintln(out, "No operations recorded.")
				return nil
			}
			for _, op := range ops {
				duration := ""
				if op.FinishedAt != nil {
					duration = op.FinishedAt.Sub(op.StartedAt).Truncate(time.Millisecond).String()
				}
				fmt.Fprintf(out, "#%d  %-22s  %s  %-8s  %-8s  %s\n",
					op.ID,
					op.Operation,
					op.StartedAt.Format("2006-01-02 15:04:05"),
					op.Status,
					duration,
					op.Parameters,
				)
			}
			return nil
		})
	},
}

// snapshot command
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage ledger snapshots in the vault",
}

var snapshotRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Replace the local ledger with the latest vault snapshot",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		version, err := app.RestoreSnapshot(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("restoring snapshot: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Restored ledger %s at version %d\n", cfg.LedgerID, version)
		return nil
	},
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the read-only query API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return withApp(cmd, "serve", nil, func(a *app.LedgerApp, cfg *config.Config) error {
			addr, _ := cmd.Flags().GetString("addr")
			if addr == "" {
				addr = cfg.ServerAddr()
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

			records := make(map[ledger.RecordKind]ledger.RecordRegistry)
			for _, kind := range []ledger.RecordKind{ledger.KindProduct, ledger.KindProductionActivity, ledger.KindMaintenance} {
				r, err := a.Records(kind)
				if err != nil {
					return err
				}
				records[kind] = r
			}

			srv := httpapi.New(httpapi.Deps{
				Lands:     a.Lands(),
				Portions:  a.Portions(),
				Documents: a.Documents(),
				Records:   records,
				Logger:    a.Logger(),
				Registry:  reg,
			})
			fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", addr)
			return srv.ListenAndServe(ctx, addr)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&callerFlag, "as", "", "Caller address (default: identity from config)")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configInitCmd.Flags().String("vault", "filesystem", "Vault type: filesystem or s3")
	configInitCmd.Flags().String("bucket", "", "S3 bucket (s3 vault)")
	configInitCmd.Flags().String("region", "", "S3 region (s3 vault)")
	configInitCmd.Flags().String("identity", "", "Default caller address")
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configVaultCmd)
	configVaultCmd.AddCommand(configVaultCheckCmd)
	configCmd.AddCommand(configEncryptionCmd)
	configEncryptionCmd.AddCommand(configEncryptionInitCmd)

	snapshotCmd.AddCommand(snapshotRestoreCmd)

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(landCmd)
	rootCmd.AddCommand(portionCmd)
	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(documentCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default: [server] addr from config)")
}
