package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/timmeromberg/anima-sub000/internal/config"
)

var initForce bool

// initFileConfig mirrors the viper keys in internal/config so the generated
// file round-trips through Load unchanged.
type initFileConfig struct {
	LLMProvider   string `yaml:"llm_provider"`
	LLMModel      string `yaml:"llm_model"`
	OllamaBaseURL string `yaml:"ollama_base_url"`
	LLMRPM        int    `yaml:"llm_rpm"`
	LogLevel      string `yaml:"log_level"`
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize an Anima project",
	Long:  "Creates anima.config.yaml in the current directory with default settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, span := tracer.Start(cmd.Context(), "init")
		defer span.End()

		const path = "anima.config.yaml"
		if _, err := os.Stat(path); err == nil && !initForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}

		data, err := yaml.Marshal(initFileConfig{
			LLMProvider:   config.ProviderMock,
			OllamaBaseURL: config.DefaultOllamaURL,
			LLMRPM:        config.DefaultLLMRPM,
			LogLevel:      config.DefaultLogLevel,
		})
		if err != nil {
			return fmt.Errorf("marshaling default config: %w", err)
		}
		if err := os.WriteFile(path, data, 0o600); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}

		log.Info().Str("path", path).Msg("created config file")
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}
