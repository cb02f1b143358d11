package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/timmeromberg/anima-sub000/internal/config"
	"github.com/timmeromberg/anima-sub000/internal/memory"
)

var (
	memTier  string
	memLimit int
)

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect and manage the persistent memory store",
}

var memoryGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Show the entry stored under a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "memory.get")
		defer span.End()

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		e, ok, err := store.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("no entry for key %q", args[0])
		}
		fmt.Printf("%s\t%s\t%s\t%s\n", e.ID, e.Tier, e.Key, e.Value)
		return nil
	},
}

var memoryRememberCmd = &cobra.Command{
	Use:   "remember <key> <value>",
	Short: "Store an entry",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "memory.remember")
		defer span.End()

		tier, err := memory.ParseTier(memTier)
		if err != nil {
			return err
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		return store.Store(ctx, args[0], args[1], tier)
	},
}

var memoryRecallCmd = &cobra.Command{
	Use:   "recall <query>",
	Short: "Search entries ranked by relevance",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "memory.recall")
		defer span.End()

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.Recall(ctx, args[0], memLimit)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s\t%s\t%s\t%s\n", e.ID, e.Tier, e.Key, e.Value)
		}
		return nil
	},
}

var memoryForgetCmd = &cobra.Command{
	Use:   "forget <key>",
	Short: "Remove an entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "memory.forget")
		defer span.End()

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		return store.Forget(ctx, args[0])
	},
}

func openStore() (*memory.TieredStore, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return memory.Open(cfg.MemoryDBPath())
}

func init() {
	memoryRememberCmd.Flags().StringVar(&memTier, "tier", "persistent", "memory tier (ephemeral, session, persistent)")
	memoryRecallCmd.Flags().IntVar(&memLimit, "limit", 5, "maximum results")

	memoryCmd.AddCommand(memoryGetCmd)
	memoryCmd.AddCommand(memoryRememberCmd)
	memoryCmd.AddCommand(memoryRecallCmd)
	memoryCmd.AddCommand(memoryForgetCmd)
	rootCmd.AddCommand(memoryCmd)
}
