package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"hfmemo/pkg/config"
	"hfmemo/pkg/core/scenario"
	"hfmemo/pkg/core/standardize"
	"hfmemo/pkg/providers/fmp"
	"hfmemo/pkg/providers/sec"
	"hfmemo/pkg/report"
)

var (
	flagConfig   string
	flagProvider string
	flagOut      string
	flagCacheDir string
	flagShares   float64
	flagHTML     bool
	flagVerbose  bool
)

func main() {
	root := &cobra.Command{
		Use:   "memo",
		Short: "Fundamental valuation memo generator",
		Long:  "Fetches company financials, runs a scenario DCF, and writes a Markdown investment memo.",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.InfoLevel
			if flagVerbose {
				level = zerolog.DebugLevel
			}
			log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
				Level(level).With().Timestamp().Logger()
		},
	}
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")

	runCmd := &cobra.Command{
		Use:   "run TICKER",
		Short: "Generate an investment memo for one ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0])
		},
	}
	runCmd.Flags().StringVarP(&flagConfig, "config", "c", "", "scenario config file (yaml, json, or hjson; defaults built in)")
	runCmd.Flags().StringVarP(&flagProvider, "provider", "p", "sec", "data provider: sec or fmp")
	runCmd.Flags().StringVarP(&flagOut, "out", "o", "reports", "output directory for memo artifacts")
	runCmd.Flags().StringVar(&flagCacheDir, "cache-dir", ".cache", "directory for provider caches")
	runCmd.Flags().Float64Var(&flagShares, "shares", 0, "diluted shares outstanding (enables per-share value)")
	runCmd.Flags().BoolVar(&flagHTML, "html", false, "also write an HTML rendering of the memo")
	root.AddCommand(runCmd)

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("memo generation failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, ticker string) error {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found, using process environment")
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	raw, mapper, err := fetch(ctx, ticker)
	if err != nil {
		return err
	}

	ds, err := mapper.Map(raw)
	if err != nil {
		return err
	}
	log.Info().Str("ticker", ds.Ticker).Int("periods", len(ds.Periods())).Msg("Standardized financials")

	base, bull, bear, err := cfg.Scenarios()
	if err != nil {
		return err
	}

	var shares *float64
	if flagShares > 0 {
		shares = &flagShares
	}

	cmp, err := scenario.Run(ds, base, bull, bear, cfg.HorizonYears, shares)
	if err != nil {
		return err
	}

	path, err := report.Write(cmp, ds, flagOut, time.Now(), flagHTML)
	if err != nil {
		return err
	}

	baseRes, _ := cmp.Result(base.Name)
	fmt.Printf("Memo written to %s\n", path)
	fmt.Printf("Base case equity value: %.0f %s\n", baseRes.Valuation.EquityValue, cmp.Currency)
	return nil
}

func fetch(ctx context.Context, ticker string) (standardize.RawStatements, standardize.Mapper, error) {
	switch flagProvider {
	case "sec":
		var opts []sec.Option
		if ua := os.Getenv("SEC_USER_AGENT"); ua != "" {
			opts = append(opts, sec.WithUserAgent(ua))
		}
		raw, err := sec.NewClient(flagCacheDir, opts...).Fetch(ctx, ticker)
		if err != nil {
			return standardize.RawStatements{}, nil, err
		}
		return raw, standardize.NewSECMapper(), nil
	case "fmp":
		client, err := fmp.NewClient(os.Getenv("FMP_API_KEY"))
		if err != nil {
			return standardize.RawStatements{}, nil, err
		}
		raw, err := client.Fetch(ctx, ticker)
		if err != nil {
			return standardize.RawStatements{}, nil, err
		}
		return raw, standardize.NewFMPMapper(), nil
	default:
		return standardize.RawStatements{}, nil, fmt.Errorf("unknown provider %q: want sec or fmp", flagProvider)
	}
}
