// Package statscmder provides the stats command for inspecting memory state.
package statscmder

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
	memoryutils "github.com/papercomputeco/engram/pkg/memory/utils"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	tierStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	countStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
)

type statsCommander struct {
	configDir string
	debug     bool
	logger    *zap.Logger
}

const statsShortDesc string = "Show memory statistics"

func NewStatsCmd() *cobra.Command {
	cmder := &statsCommander{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: statsShortDesc,
		Long:  "Show record counts per memory layer.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			cmder.configDir, err = cmd.Flags().GetString("config-dir")
			if err != nil {
				return fmt.Errorf("could not get config-dir flag: %w", err)
			}

			return cmder.run()
		},
	}

	return cmd
}

func (c *statsCommander) run() error {
	c.logger = logger.New(c.debug)
	defer func() { _ = c.logger.Sync() }()

	v, err := config.InitViper(c.configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg, err := config.Load(v)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	mem, err := memoryutils.NewMemory(cfg, c.logger)
	if err != nil {
		return fmt.Errorf("creating memory: %w", err)
	}
	defer func() { _ = mem.Close() }()

	ctx := context.Background()
	if err := mem.Initialize(ctx); err != nil {
		return fmt.Errorf("initializing memory: %w", err)
	}

	counts, err := mem.Stats(ctx)
	if err != nil {
		return err
	}

	tiers := make([]memory.Tier, 0, len(counts))
	for tier := range counts {
		tiers = append(tiers, tier)
	}
	sort.Slice(tiers, func(i, j int) bool { return tiers[i] < tiers[j] })

	fmt.Printf("\n%s\n\n", headerStyle.Render("Memory layers"))
	total := 0
	for _, tier := range tiers {
		fmt.Printf("  %s  %s\n",
			tierStyle.Render(fmt.Sprintf("%-10s", tier)),
			countStyle.Render(fmt.Sprintf("%d", counts[tier])),
		)
		total += counts[tier]
	}
	fmt.Printf("\n  %s  %s\n\n",
		headerStyle.Render(fmt.Sprintf("%-10s", "total")),
		countStyle.Render(fmt.Sprintf("%d", total)),
	)

	return nil
}
