package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"helmet-safety-go/internal/config"
	"helmet-safety-go/internal/engine"
	"helmet-safety-go/internal/replay"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

const (
	flagConfig        = "config"
	flagInput         = "input"
	flagOutput        = "output"
	flagEvery         = "every"
	flagRequireHelmet = "require-helmet"
	flagRequireVest   = "require-vest"
	flagMinConfidence = "min-confidence"
	flagDebug         = "debug"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if err := newApp(logger).Run(os.Args); err != nil {
		logger.Fatal(err)
	}
}

// newApp описывает флаги и действие CLI
func newApp(logger *logrus.Logger) *cli.App {
	return &cli.App{
		Name:  "monitor",
		Usage: "replay detector output through the helmet safety decision engine",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load rules from YAML `FILE`",
			},
			&cli.StringFlag{
				Name:    flagInput,
				Aliases: []string{"i"},
				Usage:   "read frames as JSON lines from `FILE`, stdin when empty",
			},
			&cli.StringFlag{
				Name:    flagOutput,
				Aliases: []string{"o"},
				Value:   "violations.json",
				Usage:   "write the incident log to `FILE`",
			},
			&cli.IntFlag{
				Name:  flagEvery,
				Value: 1,
				Usage: "analyze every `N`th frame",
			},
			&cli.BoolFlag{
				Name:  flagRequireHelmet,
				Value: true,
				Usage: "report people without helmets",
			},
			&cli.BoolFlag{
				Name:  flagRequireVest,
				Usage: "report people without vests",
			},
			&cli.Float64Flag{
				Name:  flagMinConfidence,
				Usage: "drop detections below this confidence",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool(flagDebug) {
				logger.SetLevel(logrus.DebugLevel)
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			return run(c, logger)
		},
	}
}

func run(c *cli.Context, logger *logrus.Logger) error {
	cfg, err := config.LoadConfig(c.String(flagConfig))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	rules := cfg.SafetyRules()
	if c.IsSet(flagRequireHelmet) {
		rules.RequireHelmet = c.Bool(flagRequireHelmet)
	}
	if c.IsSet(flagRequireVest) {
		rules.RequireVest = c.Bool(flagRequireVest)
	}
	if c.IsSet(flagMinConfidence) {
		minConfidence := c.Float64(flagMinConfidence)
		if minConfidence < 0 || minConfidence > 1 {
			return fmt.Errorf("--%s must be in [0, 1], got %v", flagMinConfidence, minConfidence)
		}
		rules.MinDetectionConfidence = minConfidence
		rules.EnforceMinConfidence = true
	}

	var input io.Reader = os.Stdin
	if path := c.String(flagInput); path != "" {
		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer file.Close()
		input = file
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	eng := engine.NewDecisionEngine(rules, engine.WithLogger(logger))
	logger.WithFields(logrus.Fields{
		"require_helmet": rules.RequireHelmet,
		"require_vest":   rules.RequireVest,
	}).Info("Мониторинг запущен")

	// Журнал сохраняется и при ошибке чтения, как при остановке камеры
	summary, runErr := replay.Run(ctx, input, eng, replay.Options{Every: c.Int(flagEvery)}, logger)
	if runErr != nil && ctx.Err() != nil {
		logger.Warn("Мониторинг прерван, сохраняем накопленный журнал")
		runErr = nil
	}
	summary.Statistics = eng.Statistics()

	count, err := eng.Save(c.String(flagOutput))
	if err != nil {
		return fmt.Errorf("failed to save incidents: %w", err)
	}
	logger.Infof("Журнал сохранен: %s (%d нарушений)", c.String(flagOutput), count)

	if runErr != nil {
		return runErr
	}
	return printSummary(c.App.Writer, summary)
}

func printSummary(w io.Writer, summary *replay.Summary) error {
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
