// Package cli wires the quorum commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vadiminshakov/quorum/config"
	"github.com/vadiminshakov/quorum/internal/domain"
	"github.com/vadiminshakov/quorum/internal/events"
	"github.com/vadiminshakov/quorum/internal/services/consensus"
	"github.com/vadiminshakov/quorum/internal/services/normalizer"
	"github.com/vadiminshakov/quorum/internal/setup"
	"github.com/vadiminshakov/quorum/internal/storage/history"
	"github.com/vadiminshakov/quorum/internal/web"
)

type app struct {
	configPath string
	logLevel   string
	jsonOut    bool

	cfg    config.Config
	logger *zap.Logger
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "quorum",
		Short: "Quorum - multi-perspective signal consensus",
		Long: `Quorum classifies a market feature vector from four perspectives
(market regime, threat level, narrative momentum, system coherence) and
folds their votes into a single audited trading decision.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	rootCmd.AddCommand(newDecideCmd(a))
	rootCmd.AddCommand(newReplayCmd(a))
	rootCmd.AddCommand(newHistoryCmd(a))
	rootCmd.AddCommand(newServeCmd(a))
	rootCmd.AddCommand(newSetupCmd())

	rootCmd.PersistentFlags().StringVar(&a.configPath, "config", "", "configuration file path (default $"+config.EnvConfigPath+")")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override the configured log level")
	rootCmd.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print records as JSON")

	return rootCmd
}

func (a *app) load() error {
	// .env is optional
	_ = godotenv.Load()

	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) openEngine(opts ...consensus.Option) (*consensus.Engine, history.Store, error) {
	store, err := history.Open(a.cfg.History)
	if err != nil {
		return nil, nil, errors.Wrap(err, "open history")
	}

	engine, err := consensus.NewEngine(a.logger, a.cfg.Engine, store, opts...)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}
	return engine, store, nil
}

func (a *app) print(w io.Writer, v any, pretty string) error {
	if !a.jsonOut {
		_, err := fmt.Fprintln(w, pretty)
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newDecideCmd(a *app) *cobra.Command {
	var (
		raw        bool
		balanceStr string
		priceStr   string
	)

	cmd := &cobra.Command{
		Use:   "decide [FILE]",
		Short: "Decide on a single feature vector",
		Long: `Read one feature vector as JSON from FILE (or stdin) and print the decision.
With --raw the input is raw signals (candles, health samples, agent scores)
that are normalized first.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := openInput(argOrEmpty(args), cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer in.Close()

			vectors, err := readVectors(in, raw, normalizer.New(a.logger))
			if err != nil {
				return err
			}
			if len(vectors) != 1 {
				return errors.Errorf("decide expects exactly one input, got %d (use replay)", len(vectors))
			}

			engine, store, err := a.openEngine()
			if err != nil {
				return err
			}
			defer store.Close()

			rec := engine.Decide(vectors[0])

			out := renderDecision(rec)
			if balanceStr != "" && priceStr != "" {
				alloc, err := allocation(rec, balanceStr, priceStr)
				if err != nil {
					return err
				}
				out += "\n" + alloc
			}

			return a.print(cmd.OutOrStdout(), rec, out)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "input is raw signals rather than a feature vector")
	cmd.Flags().StringVar(&balanceStr, "balance", "", "quote balance used to size the position")
	cmd.Flags().StringVar(&priceStr, "price", "", "entry price used to size the position")
	cmd.MarkFlagsRequiredTogether("balance", "price")

	return cmd
}

func allocation(rec domain.DecisionRecord, balanceStr, priceStr string) (string, error) {
	balance, err := decimal.NewFromString(balanceStr)
	if err != nil {
		return "", errors.Wrap(err, "invalid balance")
	}
	price, err := decimal.NewFromString(priceStr)
	if err != nil {
		return "", errors.Wrap(err, "invalid price")
	}

	notional, amount := rec.Allocate(balance, price)
	return fmt.Sprintf("%s %s quote, %s base",
		labelStyle.Render(fmt.Sprintf("%-12s", "allocation")),
		notional.StringFixed(2), amount.String()), nil
}

func newReplayCmd(a *app) *cobra.Command {
	var (
		raw      bool
		parallel int
	)

	cmd := &cobra.Command{
		Use:   "replay [FILE]",
		Short: "Decide on a batch of feature vectors",
		Long: `Read a JSON array or a stream of JSON objects and decide on each one.
With --parallel above 1 decisions run concurrently and history keeps
completion order.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if parallel < 1 {
				return errors.Errorf("--parallel must be at least 1, got %d", parallel)
			}

			in, err := openInput(argOrEmpty(args), cmd.InOrStdin())
			if err != nil {
				return err
			}
			defer in.Close()

			vectors, err := readVectors(in, raw, normalizer.New(a.logger))
			if err != nil {
				return err
			}

			engine, store, err := a.openEngine()
			if err != nil {
				return err
			}
			defer store.Close()

			records := make([]domain.DecisionRecord, len(vectors))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(parallel)
			for i, fv := range vectors {
				g.Go(func() error {
					if err := ctx.Err(); err != nil {
						return err
					}
					records[i] = engine.Decide(fv)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			a.logger.Info("replay finished",
				zap.Int("decisions", len(records)),
				zap.Int("parallel", parallel))

			return a.print(cmd.OutOrStdout(), records, renderHistory(records))
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "inputs are raw signals rather than feature vectors")
	cmd.Flags().IntVar(&parallel, "parallel", 1, "number of concurrent decisions")

	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show recorded decisions",
		Long:  "List the decisions kept by the configured history backend, oldest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(a.cfg.History)
			if err != nil {
				return errors.Wrap(err, "open history")
			}
			defer store.Close()

			records, err := store.List()
			if err != nil {
				return err
			}
			if records == nil {
				records = []domain.DecisionRecord{}
			}

			return a.print(cmd.OutOrStdout(), records, renderHistory(records))
		},
	}
}

func newServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the decision API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Addr
			}

			broadcaster := events.NewDecisionBroadcaster(0)
			engine, store, err := a.openEngine(consensus.WithPublisher(broadcaster))
			if err != nil {
				return err
			}
			defer store.Close()

			// nil when the backend cannot replay by index
			source, _ := store.(history.EventSource)
			srv := web.NewServer(a.logger, addr, engine, source)
			srv.Notify = broadcaster

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return srv.Start(ctx)
			})
			g.Go(func() error {
				<-ctx.Done()
				a.logger.Info("shutting down", zap.String("policy", engine.PolicyVersion()))
				return nil
			})

			return g.Wait()
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")

	return cmd
}

func newSetupCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Interactive configuration wizard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := setup.RunTUI(output)
			if errors.Is(err, setup.ErrCancelled) {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", setup.DefaultOutput, "file to write")

	return cmd
}

func argOrEmpty(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
