// Package storecmder provides the store command for writing observations to memory.
package storecmder

import (
	"context"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
	memoryutils "github.com/papercomputeco/engram/pkg/memory/utils"
)

var (
	storedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	skippedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	idStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type storeCommander struct {
	content string
	tier    string
	curated bool
	source  string
	project string
	scope   string
	tags    []string

	configDir string
	debug     bool
	logger    *zap.Logger
}

const storeLongDesc string = `Store an observation in memory.

The content is scored against what is already stored. Novel content is kept;
near-duplicates are skipped. Pass --curated to bypass the novelty gate and
store unconditionally (curated entries also decay much more slowly).

Content is routed by its classified type: decisions, learnings, and
preferences go to the episodic layer, everything else to the factual layer.
Use --tier to force a layer.

Example:
  engram store "We chose PostgreSQL over SQLite for multi-writer support"
  engram store "API rate limit is 600 req/min" --source docs --project billing
  engram store "Always run migrations before deploys" --curated`

const storeShortDesc string = "Store an observation in memory"

func NewStoreCmd() *cobra.Command {
	cmder := &storeCommander{}

	cmd := &cobra.Command{
		Use:   "store <content>",
		Short: storeShortDesc,
		Long:  storeLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.content = args[0]

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

	cmd.Flags().StringVar(&cmder.tier, "tier", "", "Force a layer: factual or episodic")
	cmd.Flags().BoolVar(&cmder.curated, "curated", false, "Bypass the novelty gate and always store")
	cmd.Flags().StringVar(&cmder.source, "source", "cli", "Origin of the observation")
	cmd.Flags().StringVar(&cmder.project, "project", "", "Project the observation belongs to")
	cmd.Flags().StringVar(&cmder.scope, "scope", "", "Scope for episodic quota accounting")
	cmd.Flags().StringSliceVar(&cmder.tags, "tags", nil, "Tags to attach")

	return cmd
}

func (c *storeCommander) run() error {
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

	result, err := mem.Remember(ctx, c.content, memory.RememberOptions{
		Tier:    memory.Tier(c.tier),
		Curated: c.curated,
		Source:  c.source,
		Project: c.project,
		Scope:   c.scope,
		Tags:    c.tags,
	})
	if err != nil {
		return err
	}

	if !result.Stored {
		fmt.Printf("%s %s\n",
			skippedStyle.Render("skipped"),
			dimStyle.Render(fmt.Sprintf("(score %.2f below threshold, %d similar)",
				result.Decision.Score, len(result.Decision.SimilarRecordIDs))),
		)
		return nil
	}

	fmt.Printf("%s %s %s\n",
		storedStyle.Render("stored"),
		idStyle.Render(result.Record.ID),
		dimStyle.Render(fmt.Sprintf("(%s, %s, score %.2f)",
			result.Tier, result.Record.ContentType, result.Decision.Score)),
	)

	return nil
}
