// Package main implements newsdays, a terminal reader for newsletters grouped by day.
package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"newsdays/internal/config"
	"newsdays/internal/daystore"
	"newsdays/internal/gateway"
	"newsdays/internal/logging"
	"newsdays/internal/tui"
	"newsdays/internal/view"
)

var (
	// configPath overrides ~/.config/newsdays/config.yaml
	configPath string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "newsdays",
	Short: "Browse newsletters grouped by the day they arrived",
	Long: `newsdays shows the newsletters ingested by the digest backend, one entry per day,
with an optional AI summary for each day.

Keys: enter open, esc back, s summarize, R reload day, r fetch new newsletters,
t toggle theme, x dismiss notice, q quit.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runTUI,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/newsdays/config.yaml)")
}

// session holds what every subcommand sets up first.
type session struct {
	cfg      *config.Config
	log      *zap.Logger
	closeLog func()
}

func setup() (*session, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	logger.Info("starting", zap.String("version", version), zap.String("base_url", cfg.API.BaseURL))
	return &session{cfg: cfg, log: logger, closeLog: closeLog}, nil
}

func (rt *session) newGateway(reg prometheus.Registerer) (*gateway.Client, error) {
	return gateway.New(gateway.Options{
		BaseURL:      rt.cfg.API.BaseURL,
		Timeout:      rt.cfg.API.Timeout,
		SummaryRate:  rt.cfg.API.SummaryRate,
		SummaryBurst: rt.cfg.API.SummaryBurst,
		Logger:       rt.log,
		Metrics:      gateway.NewMetrics(reg),
	})
}

func runTUI(cmd *cobra.Command, args []string) error {
	rt, err := setup()
	if err != nil {
		return err
	}
	defer rt.closeLog()

	reg := prometheus.NewRegistry()
	gw, err := rt.newGateway(reg)
	if err != nil {
		return err
	}

	ctrl := view.New(gw, daystore.New(), view.Options{
		Theme:     rt.cfg.Theme(),
		NoticeTTL: rt.cfg.UI.NoticeTTL,
		Logger:    rt.log,
	})
	defer ctrl.Dispose()

	appModel := tui.NewAppModel(ctrl)
	p := tea.NewProgram(&appModel, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("alas, there's been an error: %w", err)
	}
	logCallStats(rt.log, reg)
	if st := ctrl.State(); st.Phase == view.PhaseFailed && st.Err != nil {
		return st.Err
	}
	return nil
}

// logCallStats writes the session's gateway counters to the log on exit.
func logCallStats(logger *zap.Logger, g prometheus.Gatherer) {
	families, err := g.Gather()
	if err != nil {
		logger.Warn("gather metrics", zap.Error(err))
		return
	}
	for _, mf := range families {
		if mf.GetName() != "newsdays_gateway_requests_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			fields := make([]zap.Field, 0, len(m.GetLabel())+1)
			for _, l := range m.GetLabel() {
				fields = append(fields, zap.String(l.GetName(), l.GetValue()))
			}
			fields = append(fields, zap.Float64("count", m.GetCounter().GetValue()))
			logger.Info("gateway calls", fields...)
		}
	}
}
