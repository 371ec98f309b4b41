package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/cloudx-io/clickauction/config"
	"github.com/cloudx-io/clickauction/core"
	"github.com/cloudx-io/clickauction/report"
	"github.com/cloudx-io/clickauction/store"
	"github.com/cloudx-io/clickauction/strategy"
)

// outputs holds the destinations chosen on the command line.
type outputs struct {
	exportPath    string
	chart         bool
	signedPath    string
	publicKeyPath string
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(2)
	}

	// Define CLI flags; environment values are the defaults
	var out outputs
	flag.IntVar(&cfg.Users, "users", cfg.Users, "Number of simulated users")
	flag.IntVar(&cfg.Rounds, "rounds", cfg.Rounds, "Number of auction rounds")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "Random seed (0 = non-reproducible crypto randomness)")
	flag.StringVar(&cfg.Bidders, "bidders", cfg.Bidders, "Comma-separated bidders: fixed:<p>, uniform:<min>:<max>, learning[:<shade>]")
	flag.StringVar(&cfg.UncontestedPolicy, "uncontested", cfg.UncontestedPolicy, "Pricing when only one bidder bids: zero or reject")
	flag.StringVar(&cfg.ExportFormat, "format", cfg.ExportFormat, "Export format: json, cbor or csv")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Save the simulation to this SQLite database (default: none)")
	flag.StringVar(&out.exportPath, "out", "", "Write the history export to this file (default: none)")
	flag.BoolVar(&out.chart, "chart", true, "Print the balance chart to stdout")
	flag.StringVar(&out.signedPath, "signed-out", "", "Write a COSE_Sign1 signed CBOR export to this file")
	flag.StringVar(&out.publicKeyPath, "public-key-out", "", "Write the signing public key (PEM) to this file (default: <signed-out>.pem)")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}

	logger := cfg.Log.NewLogger(os.Stderr)

	if err := run(context.Background(), cfg, out, os.Stdout, logger); err != nil {
		logger.Error("simulation failed", slog.Any("error", err))
		os.Exit(1)
	}
}

// run builds the population and bidders, executes the rounds and writes
// every requested output.
func run(ctx context.Context, cfg config.Config, out outputs, stdout io.Writer, logger *slog.Logger) error {
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	randSource := cfg.RandSource()
	users, err := core.NewPopulation(cfg.Users, randSource)
	if err != nil {
		return fmt.Errorf("create population: %w", err)
	}

	bidders, err := strategy.ParseAll(cfg.Bidders, cfg.BidderRandSource())
	if err != nil {
		return fmt.Errorf("create bidders: %w", err)
	}

	auction, err := core.NewAuction(users, bidders, core.Options{
		Rand:        randSource,
		Uncontested: policy,
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("create auction: %w", err)
	}

	logger.Info("simulation starting",
		slog.Int("users", cfg.Users),
		slog.Int("bidders", len(bidders)),
		slog.Int("rounds", cfg.Rounds),
		slog.Int64("seed", cfg.Seed),
		slog.String("uncontested_policy", policy.String()))

	outcomes, runErr := auction.Run(cfg.Rounds)
	uncontested := 0
	for _, outcome := range outcomes {
		if outcome.Uncontested {
			uncontested++
		}
	}

	env := report.NewEnvelope(auction, cfg.Seed, policy)
	logger.Info("simulation complete",
		slog.String("simulation_id", env.SimulationID.String()),
		slog.Int("rounds_completed", env.Rounds),
		slog.Int("uncontested_rounds", uncontested),
		slog.String("history_hash", env.HistoryHash))

	// Partial histories are still written so a failed run can be inspected
	if err := writeOutputs(env, cfg.Format(), out, stdout, logger); err != nil {
		return errors.Join(runErr, err)
	}
	if cfg.DBPath != "" {
		if err := saveSimulation(ctx, cfg.DBPath, env, logger); err != nil {
			return errors.Join(runErr, err)
		}
	}
	return runErr
}

func saveSimulation(ctx context.Context, path string, env *report.Envelope, logger *slog.Logger) error {
	s, err := store.Open(ctx, path)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Save(ctx, env); err != nil {
		return err
	}
	logger.Info("simulation saved",
		slog.String("path", path),
		slog.String("simulation_id", env.SimulationID.String()))
	return nil
}

func writeOutputs(env *report.Envelope, format report.Format, out outputs, stdout io.Writer, logger *slog.Logger) error {
	if out.chart {
		if err := report.RenderChart(stdout, env.Records); err != nil {
			return fmt.Errorf("render chart: %w", err)
		}
	}

	if out.exportPath != "" {
		if err := writeFile(out.exportPath, func(w io.Writer) error {
			return report.Write(w, env, format)
		}); err != nil {
			return err
		}
		logger.Info("export written", slog.String("path", out.exportPath), slog.String("format", string(format)))
	}

	if out.signedPath == "" {
		return nil
	}

	signer, err := report.NewSigner()
	if err != nil {
		return err
	}
	signed, err := signer.Sign(env)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out.signedPath, signed, 0o644); err != nil {
		return fmt.Errorf("write signed export: %w", err)
	}
	logger.Info("signed export written", slog.String("path", out.signedPath))

	publicKeyPath := out.publicKeyPath
	if publicKeyPath == "" {
		publicKeyPath = out.signedPath + ".pem"
	}
	publicKeyPEM, err := signer.PublicKeyPEM()
	if err != nil {
		return err
	}
	if err := os.WriteFile(publicKeyPath, []byte(publicKeyPEM), 0o644); err != nil {
		return fmt.Errorf("write public key: %w", err)
	}
	logger.Info("public key written", slog.String("path", publicKeyPath))
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}
