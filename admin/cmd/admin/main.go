package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"github.com/malbeclabs/airdrop/admin/internal/admin"
	"github.com/malbeclabs/airdrop/api/config"
	"github.com/malbeclabs/airdrop/ledger/pkg/chain"
	"github.com/malbeclabs/airdrop/utils/pkg/logger"
	"github.com/malbeclabs/airdrop/utils/pkg/retry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")

	// Ledger configuration
	programIDFlag := flag.String("program-id", "", "Program ID used to derive scope addresses (or set AIRDROP_PROGRAM_ID env var)")
	scopeFlag := flag.String("scope", "", "Scope name")
	ownerFlag := flag.String("owner", "", "Owner public key for --initialize")
	accountFlag := flag.String("account", "", "Account public key for --fund and --preflight")
	lamportsFlag := flag.Uint64("lamports", 0, "Lamports to credit for --fund")
	batchFileFlag := flag.String("batch-file", "", "CSV batch file (recipient,lamports) for --preflight")

	// Solana configuration
	rpcURLFlag := flag.String("solana-rpc-url", chain.DefaultRPCURL, "Solana RPC URL for --preflight (or set SOLANA_RPC_URL env var)")

	// Commands
	migrateFlag := flag.Bool("migrate", false, "Run PostgreSQL ledger migrations using goose")
	migrateDownFlag := flag.Bool("migrate-down", false, "Roll back the last PostgreSQL ledger migration")
	migrateStatusFlag := flag.Bool("migrate-status", false, "Show PostgreSQL ledger migration status")
	initializeFlag := flag.Bool("initialize", false, "Initialize --scope owned by --owner")
	fundFlag := flag.Bool("fund", false, "Credit --lamports to --account in the ledger")
	preflightFlag := flag.Bool("preflight", false, "Compare --batch-file against the on-chain balance of --account")
	resetDBFlag := flag.Bool("reset-db", false, "Remove all scopes, recipient records and balances")
	dryRunFlag := flag.Bool("dry-run", false, "Dry run mode - show what would be done without actually executing")
	yesFlag := flag.Bool("yes", false, "Skip confirmation prompt (use with caution)")

	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	log := logger.New(*verboseFlag)

	if env := os.Getenv("AIRDROP_PROGRAM_ID"); env != "" {
		*programIDFlag = env
	}
	if env := os.Getenv("SOLANA_RPC_URL"); env != "" {
		*rpcURLFlag = env
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *preflightFlag {
		if *accountFlag == "" || *batchFileFlag == "" {
			return fmt.Errorf("--account and --batch-file are required for --preflight")
		}
		account, err := solana.PublicKeyFromBase58(*accountFlag)
		if err != nil {
			return fmt.Errorf("invalid --account: %w", err)
		}
		f, err := os.Open(*batchFileFlag)
		if err != nil {
			return fmt.Errorf("failed to open batch file: %w", err)
		}
		defer f.Close()
		batch, err := admin.ReadBatchCSV(f)
		if err != nil {
			return err
		}

		reader, err := chain.NewBalanceReader(chain.BalanceReaderConfig{
			Logger: log,
			RPC:    solanarpc.New(*rpcURLFlag),
			Retry:  retry.DefaultConfig(),
		})
		if err != nil {
			return err
		}
		report, err := admin.Preflight(ctx, log, reader, account, batch)
		if report != nil {
			admin.WriteReport(os.Stdout, report)
		}
		return err
	}

	pgCfg, err := config.PgConfigFromEnv()
	if err != nil {
		return err
	}

	switch {
	case *migrateFlag:
		return admin.PgMigrateUp(ctx, log, pgCfg)
	case *migrateDownFlag:
		return admin.PgMigrateDown(ctx, log, pgCfg)
	case *migrateStatusFlag:
		return admin.PgMigrateStatus(ctx, log, pgCfg)
	}

	if !*initializeFlag && !*fundFlag && !*resetDBFlag {
		flag.Usage()
		return nil
	}

	pool, err := config.LoadPostgres(ctx, log, pgCfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	switch {
	case *initializeFlag:
		if *scopeFlag == "" || *ownerFlag == "" || *programIDFlag == "" {
			return fmt.Errorf("--scope, --owner and --program-id are required for --initialize")
		}
		programID, err := solana.PublicKeyFromBase58(*programIDFlag)
		if err != nil {
			return fmt.Errorf("invalid --program-id: %w", err)
		}
		owner, err := solana.PublicKeyFromBase58(*ownerFlag)
		if err != nil {
			return fmt.Errorf("invalid --owner: %w", err)
		}
		return admin.InitializeScope(ctx, log, pool, os.Stdout, programID, *scopeFlag, owner)

	case *fundFlag:
		if *accountFlag == "" || *lamportsFlag == 0 {
			return fmt.Errorf("--account and --lamports are required for --fund")
		}
		account, err := solana.PublicKeyFromBase58(*accountFlag)
		if err != nil {
			return fmt.Errorf("invalid --account: %w", err)
		}
		return admin.Fund(ctx, log, pool, os.Stdout, account, *lamportsFlag)

	default:
		return admin.ResetLedger(ctx, log, pool, admin.ResetConfig{
			DryRun:      *dryRunFlag,
			SkipConfirm: *yesFlag,
			In:          os.Stdin,
			Out:         os.Stdout,
		})
	}
}
