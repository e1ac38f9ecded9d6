// Package ingestcmder provides the ingest command for bulk writes from stdin.
package ingestcmder

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/papercomputeco/engram/pkg/config"
	"github.com/papercomputeco/engram/pkg/logger"
	"github.com/papercomputeco/engram/pkg/memory"
	memoryutils "github.com/papercomputeco/engram/pkg/memory/utils"
	"github.com/papercomputeco/engram/pkg/worker"
)

type ingestCommander struct {
	source  string
	project string
	scope   string
	workers uint

	configDir string
	debug     bool
	logger    *zap.Logger
}

const ingestLongDesc string = `Ingest observations from stdin, one per line.

Each line passes through the novelty gate independently, so feeding the same
transcript twice stores nothing new. Blank lines are skipped.

Writes go through an asynchronous worker pool, which keeps ingestion moving
while admission checks and persistence happen in the background.

Example:
  cat session.log | engram ingest --source session
  engram ingest --project billing < notes.txt`

const ingestShortDesc string = "Ingest observations from stdin"

func NewIngestCmd() *cobra.Command {
	cmder := &ingestCommander{}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: ingestShortDesc,
		Long:  ingestLongDesc,
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

	cmd.Flags().StringVar(&cmder.source, "source", "ingest", "Origin of the observations")
	cmd.Flags().StringVar(&cmder.project, "project", "", "Project the observations belong to")
	cmd.Flags().StringVar(&cmder.scope, "scope", "", "Scope for episodic quota accounting")
	cmd.Flags().UintVar(&cmder.workers, "workers", 0, "Worker count (default serializes writes)")

	return cmd
}

func (c *ingestCommander) run() error {
	c.logger = logger.New(c.debug)
	defer func() { _ = c.logger.Sync() }()

	pretty := logger.NewPretty(c.debug, os.Stderr)

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

	if err := mem.Initialize(context.Background()); err != nil {
		return fmt.Errorf("initializing memory: %w", err)
	}

	pool, err := worker.NewPool(&worker.Config{
		Memory:     mem,
		NumWorkers: c.workers,
		Logger:     c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating worker pool: %w", err)
	}

	var queued, dropped int
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		ok := pool.Enqueue(worker.Job{
			Content: line,
			Opts: memory.RememberOptions{
				Source:  c.source,
				Project: c.project,
				Scope:   c.scope,
			},
		})
		if ok {
			queued++
		} else {
			dropped++
		}
	}
	if err := scanner.Err(); err != nil {
		pool.Close()
		return fmt.Errorf("reading stdin: %w", err)
	}

	pool.Close()

	pretty.Info("ingest complete", "queued", queued, "dropped", dropped)
	return nil
}
