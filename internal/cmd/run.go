package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/timmeromberg/anima-sub000/internal/config"
	"github.com/timmeromberg/anima-sub000/internal/interp"
	"github.com/timmeromberg/anima-sub000/internal/llm"
	"github.com/timmeromberg/anima-sub000/internal/memory"
	"github.com/timmeromberg/anima-sub000/internal/parser"
	"github.com/timmeromberg/anima-sub000/internal/value"
)

var runEcho bool

var runCmd = &cobra.Command{
	Use:   "run <file.anima>",
	Short: "Run an Anima program",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "run")
		defer span.End()

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.EnsureDataDir(); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}
		cfg.WarnIfEnvAPIKey()

		src, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading program: %w", err)
		}
		prog, err := parser.Parse(string(src))
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}

		store, err := memory.Open(cfg.MemoryDBPath())
		if err != nil {
			return err
		}
		defer store.Close()

		opts := []interp.Option{
			interp.WithMemory(store),
			interp.WithLogger(log.Logger),
		}
		provider, err := newProvider(cfg)
		if err != nil {
			return err
		}
		if provider != nil {
			opts = append(opts, interp.WithLLM(provider))
		}

		in := interp.New(opts...)
		v, err := in.Run(ctx, prog)
		if err != nil {
			return err
		}

		if runEcho {
			if _, isUnit := v.Data.(value.Unit); !isUnit {
				fmt.Println(value.Display(v))
			}
		}
		return nil
	},
}

// newProvider builds the semantic adapter selected in cfg; nil when none is
// configured.
func newProvider(cfg *config.Config) (llm.Provider, error) {
	var p llm.Provider
	switch cfg.LLMProvider {
	case config.ProviderOpenAI:
		op, err := llm.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.LLMModel)
		if err != nil {
			return nil, err
		}
		p = op
	case config.ProviderOllama:
		p = llm.NewOllamaProvider(cfg.OllamaBaseURL, cfg.LLMModel)
	case config.ProviderMock:
		return llm.NewMockProvider(), nil
	default:
		return nil, nil
	}
	if cfg.LLMRPM > 0 {
		p = llm.NewRateLimited(p, cfg.LLMRPM)
	}
	return p, nil
}

func init() {
	runCmd.Flags().BoolVar(&runEcho, "echo", false, "print the program's final value")
	rootCmd.AddCommand(runCmd)
}
