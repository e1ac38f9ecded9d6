// Package prunecmder provides the prune command for evicting decayed memories.
package prunecmder

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/logger"
	memoryutils "github.com/papercomputeco/engram/pkg/memory/utils"
	"github.com/papercomputeco/engram/pkg/utils"
)

var (
	prunedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type pruneCommander struct {
	verbose bool

	configDir string
	debug     bool
	logger    *zap.Logger
}

const pruneLongDesc string = `Evict memories whose decay factor has fallen below the prune threshold.

Each record decays exponentially on its content-type half-life, slowed by
utility and access frequency. Curated, high-utility, and frequently recalled
memories survive far longer than one-off observations.

Example:
  engram prune
  engram prune --verbose`

const pruneShortDesc string = "Evict decayed memories"

func NewPruneCmd() *cobra.Command {
	cmder := &pruneCommander{}

	cmd := &cobra.Command{
		Use:   "prune",
		Short: pruneShortDesc,
		Long:  pruneLongDesc,
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

	cmd.Flags().BoolVarP(&cmder.verbose, "verbose", "v", false, "Print each pruned record")

	return cmd
}

func (c *pruneCommander) run() error {
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

	pruned, err := mem.Prune(ctx)
	if err != nil {
		return err
	}

	if len(pruned) == 0 {
		fmt.Println("Nothing to prune.")
		return nil
	}

	fmt.Printf("%s %d memories\n",
		prunedStyle.Render("pruned"),
		len(pruned),
	)

	if c.verbose {
		for _, rec := range pruned {
			content := utils.Truncate(strings.ReplaceAll(rec.Content, "\n", " "), 80)
			fmt.Printf("  %s\n", dimStyle.Render(fmt.Sprintf("%s  %s", rec.ID, content)))
		}
	}

	return nil
}
