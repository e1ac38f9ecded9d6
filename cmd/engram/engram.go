// Package engramcmder
package engramcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/engram/cmd/engram/config"
	ingestcmder "github.com/papercomputeco/engram/cmd/engram/ingest"
	prunecmder "github.com/papercomputeco/engram/cmd/engram/prune"
	recallcmder "github.com/papercomputeco/engram/cmd/engram/recall"
	statscmder "github.com/papercomputeco/engram/cmd/engram/stats"
	storecmder "github.com/papercomputeco/engram/cmd/engram/store"
	versioncmder "github.com/papercomputeco/engram/cmd/version"
)

const engramLongDesc string = `Engram is persistent memory for your agents.

Observations pass a novelty gate before being written, so the store keeps
surprising content and drops repeats. Factual content lands in a hash-indexed
layer for fast exact recall; decisions, learnings, and preferences land in a
signature-indexed layer for approximate recall. Everything decays over time
unless it keeps getting used.

  engram store "Node.js 22 is required for the web build"
  engram recall "node version"
  engram prune`

const engramShortDesc string = "Engram - Agent Memory"

func NewEngramCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "engram",
		Short: engramShortDesc,
		Long:  engramLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Config directory (defaults to $ENGRAM_DIR or ~/.engram)")

	// Add subcommands
	cmd.AddCommand(storecmder.NewStoreCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(recallcmder.NewRecallCmd())
	cmd.AddCommand(prunecmder.NewPruneCmd())
	cmd.AddCommand(statscmder.NewStatsCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
