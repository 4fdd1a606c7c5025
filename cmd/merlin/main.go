// Package main provides the merlin CLI entry point.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/richinex/merlin/cli"
)

var (
	// Global flags
	provider string
	verbose  bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "merlin",
		Short: "Desktop assistant with safety-verified command execution",
		Long: `A desktop assistant that answers questions, runs safety-verified shell
commands, and searches indexed files. Complex requests are decomposed into
reasoning chains executed step by step.`,
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, anthropic, gemini)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show verbose output")

	rootCmd.AddCommand(chatCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(filesCmd())
	rootCmd.AddCommand(dirsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options() cli.Options {
	return cli.Options{Provider: provider, Verbose: verbose}
}

func chatCmd() *cobra.Command {
	var sessionID string
	var dbPath string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive assistant session",
		Long: `Start an interactive session. With --session, conversation history and
completed reasoning-chain summaries persist to SQLite and the session can
be resumed later.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Chat(context.Background(), sessionID, dbPath, options())
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID for conversation persistence")
	cmd.Flags().StringVar(&dbPath, "db", "", "Database path (default ~/.merlin/merlin.db)")

	return cmd
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [query]",
		Short: "Answer a single query and exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.Ask(context.Background(), args[0], options())
		},
	}
}

func filesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "files",
		Short: "Manage and search the file index",
	}

	var vectorStore string
	var maxDepth int
	indexCmd := &cobra.Command{
		Use:   "index [dir]",
		Short: "Index a directory into a vector store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.IndexFiles(args[0], vectorStore, maxDepth, options())
		},
	}
	indexCmd.Flags().StringVar(&vectorStore, "vector-store", "", "Vector store name (default \"default\")")
	indexCmd.Flags().IntVar(&maxDepth, "max-depth", 0, "Maximum directory depth to index")

	var listType string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed directories and vector stores",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ListIndexed(listType, options())
		},
	}
	listCmd.Flags().StringVar(&listType, "type", "all", "What to list: dirs, stores, or all")

	removeCmd := &cobra.Command{
		Use:   "remove [dir]",
		Short: "Remove a directory from the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.RemoveIndexed(args[0], options())
		},
	}

	var searchStore string
	var maxResults int
	searchCmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search indexed files by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.SearchIndex(args[0], searchStore, maxResults, options())
		},
	}
	searchCmd.Flags().StringVar(&searchStore, "vector-store", "", "Vector store to search (default \"default\")")
	searchCmd.Flags().IntVar(&maxResults, "max-results", 20, "Maximum number of results")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show index statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.IndexStatus(options())
		},
	}

	var force bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove all indexed data",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ClearIndex(force, options())
		},
	}
	clearCmd.Flags().BoolVar(&force, "force", false, "Skip the confirmation prompt")

	cmd.AddCommand(indexCmd, listCmd, removeCmd, searchCmd, statusCmd, clearCmd)
	return cmd
}

func dirsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dirs",
		Short: "Manage the approved-directory allowlist",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List approved directories",
			RunE: func(cmd *cobra.Command, args []string) error {
				return cli.ListDirs(options())
			},
		},
		&cobra.Command{
			Use:   "add [dir]",
			Short: "Approve a directory for command targeting",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return cli.AddDir(args[0], options())
			},
		},
		&cobra.Command{
			Use:   "remove [dir]",
			Short: "Withdraw approval for a directory",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return cli.RemoveDir(args[0], options())
			},
		},
	)
	return cmd
}
