// Package recallcmder provides the recall command for querying memory.
package recallcmder

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
	"github.com/papercomputeco/engram/pkg/store"
	"github.com/papercomputeco/engram/pkg/utils"
)

var (
	rankStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("82")).Bold(true)
	scoreStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	typeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	contentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type recallCommander struct {
	query string
	topK  int
	quiet bool

	configDir string
	debug     bool
	logger    *zap.Logger
}

const recallLongDesc string = `Recall stored memories matching a query.

Both layers are queried and results are merged by score: the factual layer
matches on shared n-grams, the episodic layer on signature or embedding
similarity, both weighted by how much each record has decayed.

Use --quiet to output only record contents, one per line, for piping into
prompts or other commands.

Example:
  engram recall "node version"
  engram recall "database decisions" --top 10
  engram recall "deploy checklist" --quiet`

const recallShortDesc string = "Recall stored memories"

func NewRecallCmd() *cobra.Command {
	cmder := &recallCommander{}

	cmd := &cobra.Command{
		Use:   "recall <query>",
		Short: recallShortDesc,
		Long:  recallLongDesc,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmder.query = args[0]

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

	cmd.Flags().IntVarP(&cmder.topK, "top", "k", 5, "Number of results to return")
	cmd.Flags().BoolVarP(&cmder.quiet, "quiet", "q", false, "Output only contents, one per line (for piping)")

	return cmd
}

func (c *recallCommander) run() error {
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

	results, err := mem.Recall(ctx, c.query, c.topK)
	if err != nil {
		return err
	}

	if len(results) == 0 {
		if !c.quiet {
			fmt.Println("No memories found.")
		}
		return nil
	}

	if c.quiet {
		for _, result := range results {
			fmt.Println(strings.ReplaceAll(result.Record.Content, "\n", " "))
		}
		return nil
	}

	fmt.Printf("\n%s %s\n\n",
		headerStyle.Render("Memories for:"),
		typeStyle.Render(fmt.Sprintf("%q", c.query)),
	)

	for i, result := range results {
		c.printResult(i+1, result)
	}

	return nil
}

func (c *recallCommander) printResult(rank int, result store.QueryResult) {
	fmt.Printf("  %s  %s  %s\n",
		rankStyle.Render(fmt.Sprintf("#%d", rank)),
		scoreStyle.Render(fmt.Sprintf("score: %.4f", result.Score)),
		typeStyle.Render(string(result.Record.ContentType)),
	)

	content := utils.Truncate(strings.ReplaceAll(result.Record.Content, "\n", " "), 100)
	fmt.Printf("  %s\n", contentStyle.Render(content))
	fmt.Printf("  %s\n\n", dimStyle.Render(fmt.Sprintf("%s · accessed %d times · %s",
		result.Record.ID, result.Record.AccessCount, result.Record.CreatedAt.Format("2006-01-02"))))
}
