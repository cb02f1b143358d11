package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmeromberg/anima-sub000/internal/config"
	"github.com/timmeromberg/anima-sub000/internal/llm"
)

func TestRootCommand_HasExpectedSubcommands(t *testing.T) {
	expected := []string{
		"version",
		"run",
		"repl",
		"memory",
	}
	registered := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		registered[cmd.Name()] = true
	}
	for _, name := range expected {
		assert.True(t, registered[name], "subcommand %q should be registered", name)
	}
}

func TestRootCommand_HelpOutput(t *testing.T) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"--help"})

	err := rootCmd.Execute()
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "agent-oriented scripting language")
	assert.Contains(t, output, "version")
	assert.Contains(t, output, "run")
	assert.Contains(t, output, "repl")
}

func TestVersionVars_HaveDefaults(t *testing.T) {
	assert.Equal(t, "dev", Version)
	assert.Equal(t, "none", Commit)
	assert.Equal(t, "unknown", BuildDate)
}

func TestRootCommand_GlobalFlags(t *testing.T) {
	for _, name := range []string{"config", "verbose", "log-level", "log-format", "otel"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), "flag %q should exist", name)
	}
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		wantName string
	}{
		{"mock", config.ProviderMock, "mock"},
		{"ollama", config.ProviderOllama, "ollama"},
		{"openai", config.ProviderOpenAI, "openai"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{
				LLMProvider:   tt.provider,
				OpenAIAPIKey:  "test-key",
				OllamaBaseURL: config.DefaultOllamaURL,
			}
			p, err := newProvider(cfg)
			require.NoError(t, err)
			require.NotNil(t, p)
			assert.Equal(t, tt.wantName, p.Name())
		})
	}
}

func TestNewProvider_NoneConfigured(t *testing.T) {
	p, err := newProvider(&config.Config{LLMProvider: ""})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestOpenDelimiters(t *testing.T) {
	tests := []struct {
		name  string
		src   string
		depth int
	}{
		{"balanced", `val x = 1`, 0},
		{"open brace", `fun f() {`, 1},
		{"nested closed", `val xs = [1, [2, 3]]`, 0},
		{"open paren", `println(1 +`, 1},
		{"brace in string", `val s = "{"`, 0},
		{"escaped quote", `val s = "a\"{" + f(`, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.depth, openDelimiters(tt.src))
		})
	}
}

var _ llm.Provider = (*llm.MockProvider)(nil)
