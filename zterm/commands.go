package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"rhystmorgan/zterm/internal/audit"
	"rhystmorgan/zterm/internal/config"
	"rhystmorgan/zterm/internal/logging"
	"rhystmorgan/zterm/internal/send"
	"rhystmorgan/zterm/internal/utils"
	"rhystmorgan/zterm/internal/validation"
	"rhystmorgan/zterm/internal/views"
	"rhystmorgan/zterm/internal/wallet"
)

var (
	sendTo     string
	sendAmount string
	sendMemo   string
	sendMax    bool
	strictFlag bool
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Submit a single transaction without the interactive screen",
	Example: `  # Send 0.5 ZEC to a shielded address with a memo
  zterm send --to zs1... --amount 0.5 --memo "invoice 42"

  # Sweep the spendable balance minus the fee
  zterm send --to t1... --max`,
	Args: cobra.NoArgs,
	RunE: runSend,
}

var classifyCmd = &cobra.Command{
	Use:   "classify <address>",
	Short: "Report whether an address is transparent or shielded",
	Args:  cobra.ExactArgs(1),
	RunE:  runClassify,
}

var balanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Show the spendable and pending balance",
	Args:  cobra.NoArgs,
	RunE:  runBalance,
}

var addressesCmd = &cobra.Command{
	Use:   "addresses",
	Short: "List the addresses held by the node's wallet",
	Args:  cobra.NoArgs,
	RunE:  runAddresses,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the node's chain, block height and sync progress",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	sendCmd.Flags().StringVar(&sendTo, "to", "", "recipient address")
	sendCmd.Flags().StringVar(&sendAmount, "amount", "", "amount in ZEC")
	sendCmd.Flags().StringVar(&sendMemo, "memo", "", "memo (shielded recipients only)")
	sendCmd.Flags().BoolVar(&sendMax, "max", false, "send the whole spendable balance minus the fee")
	_ = sendCmd.MarkFlagRequired("to")
	sendCmd.MarkFlagsMutuallyExclusive("amount", "max")

	classifyCmd.Flags().BoolVar(&strictFlag, "strict", false, "also verify the address checksum")
}

// environment is everything a command needs once configuration is loaded.
type environment struct {
	config  *config.Config
	client  *wallet.Client
	auditor *audit.SubmissionAuditor
}

// setup loads configuration, starts logging and connects to the node. Unless
// it is listing addresses, it also checks that the funding address belongs
// to the node's wallet.
func setup(ctx context.Context, interactive bool) (*environment, error) {
	return setupWith(ctx, interactive, true)
}

func setupWith(ctx context.Context, interactive, verifyFunding bool) (*environment, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	level := cfg.LogLevel
	if logLevel != "" {
		level = logLevel
	}
	logFile := cfg.LogFile
	// stderr would draw over the alt screen
	if interactive && logFile == "" && level != "" {
		logFile = filepath.Join(filepath.Dir(config.DefaultPath()), "zterm.log")
	}
	if err := logging.Initialize(level, logFile); err != nil {
		return nil, err
	}

	client, err := wallet.NewClient(ctx, cfg.ToWalletConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to node: %w", err)
	}

	if verifyFunding {
		if err := client.VerifyFundingAddress(ctx); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to verify funding address: %w (see zterm addresses)", err)
		}
	}

	env := &environment{config: cfg, client: client}

	if cfg.AuditDir != "" {
		auditor, err := audit.NewSubmissionAuditor(cfg.AuditDir)
		if err != nil {
			client.Close()
			return nil, err
		}
		env.auditor = auditor
	}

	return env, nil
}

func (e *environment) newForm() *send.Form {
	opts := send.Options{
		Fee:             e.client.Fee(),
		StrictAddresses: e.config.StrictAddresses,
	}
	if e.auditor != nil {
		opts.Observers = append(opts.Observers, e.auditor)
	}
	return send.NewForm(e.client, opts)
}

func (e *environment) Close() {
	if e.auditor != nil {
		if err := e.auditor.Close(); err != nil {
			logging.Warn("Failed to flush audit log", zap.Error(err))
		}
	}
	e.client.Close()
	logging.Sync()
}

func runTUI(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer env.Close()

	app := views.NewAppModel(env.newForm(), views.AppOptions{
		NetworkStatus:  env.client.GetStatus(),
		FromAddress:    env.config.FromAddress,
		BalanceRefresh: env.config.BalanceRefresh,
		Status:         env.client,
	})

	p := tea.NewProgram(app, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running application: %w", err)
	}

	return nil
}

func runSend(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	env, err := setup(ctx, false)
	if err != nil {
		return err
	}
	defer env.Close()

	form := env.newForm()
	defer form.Close()

	if _, err := form.LoadBalance(ctx); err != nil {
		return fmt.Errorf("failed to load balance: %s", wallet.ClassifyError(err).UserMessage())
	}

	form.SetAddress(strings.TrimSpace(sendTo))
	if sendMax {
		form.FillMax()
	} else {
		form.SetAmount(sendAmount)
	}
	form.SetMemo(sendMemo)

	snapshot := form.Snapshot()
	if !snapshot.Validation.IsValid {
		for _, e := range snapshot.Validation.Errors {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", e.Field, e.Message)
		}
		return fmt.Errorf("transaction not sent")
	}
	if sendMemo != "" && !snapshot.MemoVisible() {
		fmt.Fprintln(cmd.ErrOrStderr(), "note: memo dropped for a transparent recipient")
	}

	amount, _ := validation.ParseAmount(snapshot.Draft.Amount)
	fmt.Fprintf(cmd.OutOrStdout(), "Sending %s (+%s fee) to %s...\n",
		utils.FormatBalance(amount), utils.FormatAmount(snapshot.Fee), snapshot.Draft.Address)

	outcome, ok := form.Submit(ctx)
	if !ok {
		return fmt.Errorf("transaction not sent")
	}
	if !outcome.Succeeded() {
		return fmt.Errorf("%s", form.Snapshot().LastError)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Transaction ID: %s\n", outcome.TxID)
	return nil
}

func runClassify(cmd *cobra.Command, args []string) error {
	address := strings.TrimSpace(args[0])

	category, err := validation.ValidateAddress(address)
	if err != nil {
		return err
	}
	if strictFlag {
		if err := validation.VerifyChecksum(address); err != nil {
			return err
		}
	}

	memo := "not allowed"
	if category.MemoPermitted() {
		memo = "allowed"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (memo %s)\n", category, memo)
	return nil
}

func runBalance(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer env.Close()

	balance, err := env.client.GetBalance(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load balance: %s", wallet.ClassifyError(err).UserMessage())
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Spendable:   %s\n", utils.FormatBalanceWithCommas(balance.Spendable))
	fmt.Fprintf(out, "Unconfirmed: %s\n", utils.FormatBalanceWithCommas(balance.Unconfirmed))
	fmt.Fprintf(out, "Max send:    %s\n", utils.FormatBalance(validation.MaxSendable(env.client.Fee(), balance.Spendable)))
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	env, err := setup(cmd.Context(), false)
	if err != nil {
		return err
	}
	defer env.Close()

	status, err := env.client.Status(cmd.Context())
	if err != nil {
		return fmt.Errorf("node unreachable: %s", wallet.ClassifyError(err).UserMessage())
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Node:   %s\n", status.NodeURL)
	fmt.Fprintf(out, "Chain:  %s\n", status.Chain)
	fmt.Fprintf(out, "Height: %d\n", status.BlockHeight)
	if status.Synced() {
		fmt.Fprintln(out, "Sync:   complete")
	} else {
		fmt.Fprintf(out, "Sync:   %.2f%% (%d of %d headers)\n", status.SyncProgress*100, status.BlockHeight, status.Headers)
	}
	return nil
}

func runAddresses(cmd *cobra.Command, args []string) error {
	env, err := setupWith(cmd.Context(), false, false)
	if err != nil {
		return err
	}
	defer env.Close()

	addresses, err := env.client.ListAddresses(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list addresses: %s", wallet.ClassifyError(err).UserMessage())
	}

	out := cmd.OutOrStdout()
	for _, address := range addresses {
		marker := " "
		if address == env.config.FromAddress {
			marker = "*"
		}
		category := validation.Classify(address)
		kind := category.String()
		if category == validation.CategoryInvalid {
			kind = "Unsupported"
		}
		fmt.Fprintf(out, "%s %-11s %s\n", marker, kind, address)
	}
	return nil
}
