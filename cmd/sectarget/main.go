// Command sectarget ranks secondary gene targets that share pathways with a
// primary target and with a disease.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vanshika/sectarget/internal/config"
	"github.com/vanshika/sectarget/internal/logging"
	"github.com/vanshika/sectarget/internal/service"
)

const programName = "sectarget"

// app carries what every subcommand needs once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	cfg        config.Config
	logger     *slog.Logger
	stdout     io.Writer
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(&app{stdout: os.Stdout}).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, errorLine(err))
		cancel()
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   programName,
		Short: "Prioritise secondary targets on disease and target pathways",
		Long: `sectarget ranks genes functionally linked both to a disease and to a
primary target gene. It aggregates disease-target associations, hands the
ranked list to an external enrichment tool, keeps the significant pathways,
scores the genes shared with the pathways of the target and builds the
directed interaction network used for propagation.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML file overlaying the environment configuration")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug|info|warn|error)")

	root.AddCommand(
		newValidateCmd(a),
		newInputCmd(a),
		newPathwaysCmd(a),
		newScoreCmd(a),
		newInteractionsCmd(a),
		newExportCmd(a),
		newRunCmd(a),
	)
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load()
	if err != nil {
		return &service.StageError{Stage: "config", Err: err}
	}
	if a.configPath != "" {
		if cfg, err = config.LoadFile(cfg, a.configPath); err != nil {
			return &service.StageError{Stage: "config", Err: err}
		}
	} else if err := cfg.Validate(); err != nil {
		return &service.StageError{Stage: "config", Err: err}
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg
	a.logger = logging.New(cfg.Logging).With("component", programName)
	return nil
}

// errorLine renders the single diagnostic line printed on failure.
func errorLine(err error) string {
	var stage *service.StageError
	if errors.As(err, &stage) {
		return fmt.Sprintf("ERROR in %s: %s: %v", programName, stage.Stage, stage.Err)
	}
	return fmt.Sprintf("ERROR in %s: cli: %v", programName, err)
}

// inStage tags err with stage unless it already names one.
func inStage(stage string, err error) error {
	if err == nil {
		return nil
	}
	var se *service.StageError
	if errors.As(err, &se) {
		return err
	}
	return &service.StageError{Stage: stage, Err: err}
}
