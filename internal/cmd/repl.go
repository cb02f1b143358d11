package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/timmeromberg/anima-sub000/internal/config"
	"github.com/timmeromberg/anima-sub000/internal/interp"
	"github.com/timmeromberg/anima-sub000/internal/memory"
	"github.com/timmeromberg/anima-sub000/internal/parser"
	"github.com/timmeromberg/anima-sub000/internal/value"
)

var replCmd = &cobra.Command{
	Use:   "repl",
	Short: "Start an interactive Anima session",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, span := tracer.Start(cmd.Context(), "repl")
		defer span.End()

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if err := cfg.EnsureDataDir(); err != nil {
			return fmt.Errorf("creating data directory: %w", err)
		}

		store, err := memory.Open(cfg.MemoryDBPath())
		if err != nil {
			return err
		}
		defer store.Close()
		defer store.EndSession()

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

		fmt.Printf("anima %s (:quit to exit)\n", resolvedVersion())
		scanner := bufio.NewScanner(os.Stdin)
		var pending strings.Builder

		for {
			if pending.Len() == 0 {
				fmt.Print("anima> ")
			} else {
				fmt.Print("   ... ")
			}
			if !scanner.Scan() {
				fmt.Println()
				return scanner.Err()
			}
			line := scanner.Text()

			if pending.Len() == 0 {
				switch strings.TrimSpace(line) {
				case ":quit", ":q":
					return nil
				case "":
					continue
				}
			}

			pending.WriteString(line)
			pending.WriteString("\n")
			snippet := pending.String()
			if openDelimiters(snippet) > 0 {
				continue
			}
			pending.Reset()

			prog, err := parser.Parse(snippet)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			v, err := in.Run(ctx, prog)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				continue
			}
			if _, isUnit := v.Data.(value.Unit); !isUnit {
				fmt.Println(value.Display(v))
			}
		}
	},
}

// openDelimiters counts unclosed braces, brackets, and parens outside string
// literals, so multi-line declarations keep reading.
func openDelimiters(src string) int {
	depth := 0
	inString := false
	escaped := false
	for _, r := range src {
		if inString {
			switch {
			case escaped:
				escaped = false
			case r == '\\':
				escaped = true
			case r == '"':
				inString = false
			}
			continue
		}
		switch r {
		case '"':
			inString = true
		case '{', '[', '(':
			depth++
		case '}', ']', ')':
			depth--
		}
	}
	return depth
}

func init() {
	rootCmd.AddCommand(replCmd)
}
