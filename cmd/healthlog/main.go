package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pbaille/healthlog/internal/api"
	"github.com/pbaille/healthlog/internal/config"
	"github.com/pbaille/healthlog/internal/parse"
	"github.com/pbaille/healthlog/internal/query"
	"github.com/pbaille/healthlog/internal/store"
)

var (
	dbPath      string
	aliasesPath string
)

func main() {
	home, _ := os.UserHomeDir()
	defaultDB := filepath.Join(home, ".healthlog", "healthlog.db")
	defaultAliases := filepath.Join(home, ".healthlog", "aliases.yaml")

	rootCmd := &cobra.Command{
		Use:   "healthlog",
		Short: "Terse health and training log",
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", defaultDB, "database path")
	rootCmd.PersistentFlags().StringVar(&aliasesPath, "aliases", defaultAliases, "alias file path")

	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(correctCmd())
	rootCmd.AddCommand(delCmd())
	rootCmd.AddCommand(tagsCmd())
	rootCmd.AddCommand(aliasCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getStore() (*store.Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	return store.New(dbPath)
}

func getParser() (*parse.Parser, error) {
	cfg, err := config.EnsureAliases(aliasesPath)
	if err != nil {
		return nil, err
	}
	return parse.New(parse.NewAliases(cfg.Table())), nil
}

// confirmation renders the bot-style reply: display text, check mark, hash,
// and tag use counts when the entry carries tags.
func confirmation(s *store.Store, entry *store.Entry) string {
	reply := fmt.Sprintf("%s \u2713 [%s]", entry.Display, entry.Hash)

	if len(entry.Tags) > 0 {
		counts := make([]string, 0, len(entry.Tags))
		for _, tag := range entry.Tags {
			n, err := s.TagCount(tag, entry.EntryType)
			if err != nil {
				continue
			}
			counts = append(counts, fmt.Sprintf("@%s: %d", tag, n))
		}
		if len(counts) > 0 {
			reply += fmt.Sprintf(" (%s)", strings.Join(counts, ", "))
		}
	}
	return reply
}

func logCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log [entry text]",
		Short: "Log an entry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")

			p, err := getParser()
			if err != nil {
				return err
			}
			parsed, err := p.Parse(text, time.Now())
			if err != nil {
				return err
			}

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			entry, err := s.CreateEntry(text, parsed)
			if err != nil {
				return err
			}

			fmt.Println(confirmation(s, entry))
			return nil
		},
	}
}

func listCmd() *cobra.Command {
	var limit int
	var entryType string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			entries, err := s.ListEntries(entryType, limit, 0)
			if err != nil {
				return err
			}

			if len(entries) == 0 {
				fmt.Println("No entries yet. Use 'healthlog log' to create one.")
				return nil
			}

			for _, e := range entries {
				fmt.Printf("[%s] %s  %s\n",
					e.Hash, e.Timestamp.Format("2006-01-02 15:04"), e.Display)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show")
	cmd.Flags().StringVarP(&entryType, "type", "t", "", "filter by entry type (exercise, hr, hrv, temp, weight, cp)")
	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [hash]",
		Short: "Show entry details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			entry, err := s.GetEntry(strings.TrimPrefix(args[0], "#"))
			if err != nil {
				return err
			}

			fmt.Printf("Hash:    %s\n", entry.Hash)
			fmt.Printf("Type:    %s\n", entry.EntryType)
			fmt.Printf("Time:    %s\n", entry.Timestamp.Format("2006-01-02 15:04:05"))
			fmt.Printf("Display: %s\n", entry.Display)
			fmt.Printf("Raw:     %s\n", entry.RawText)
			if len(entry.Tags) > 0 {
				fmt.Printf("Tags:    @%s\n", strings.Join(entry.Tags, " @"))
			}
			fmt.Printf("Parsed:  %s\n", entry.Parsed)
			return nil
		},
	}
}

func correctCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "correct [hash] [replacement text]",
		Short: "Re-parse an entry with replacement text, keeping its hash",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash := strings.TrimPrefix(args[0], "#")
			text := strings.Join(args[1:], " ")

			p, err := getParser()
			if err != nil {
				return err
			}
			parsed, err := p.Parse(text, time.Now())
			if err != nil {
				return err
			}

			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			entry, err := s.UpdateEntry(hash, text, parsed)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no entry with hash %s", hash)
			}
			if err != nil {
				return err
			}

			fmt.Println(confirmation(s, entry))
			return nil
		},
	}
}

func delCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "del [hash]",
		Short: "Delete an entry (the most recent one when no hash is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			var entry *store.Entry
			if len(args) == 0 {
				entry, err = s.DeleteLast()
				if errors.Is(err, store.ErrNotFound) {
					fmt.Println("No entries to delete")
					return nil
				}
			} else {
				hash := strings.TrimPrefix(args[0], "#")
				entry, err = s.DeleteEntry(hash)
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("no entry with hash %s", hash)
				}
			}
			if err != nil {
				return err
			}

			fmt.Printf("deleted %s [%s]\n", entry.Display, entry.Hash)
			return nil
		},
	}
}

func tagsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "List all tags with usage counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			tags, err := s.AllTags()
			if err != nil {
				return err
			}

			if len(tags) == 0 {
				fmt.Println("No tags yet. Use @tagname with entries to create tags.")
				return nil
			}

			fmt.Println("Tags:")
			for _, t := range tags {
				fmt.Printf("  @%s: %d uses\n", t.Tag, t.UseCount)
			}
			return nil
		},
	}
}

func aliasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "alias",
		Short: "Manage abbreviation aliases",
	}
	cmd.AddCommand(aliasListCmd())
	cmd.AddCommand(aliasAddCmd())
	cmd.AddCommand(aliasRemoveCmd())
	cmd.AddCommand(aliasSearchCmd())
	return cmd
}

func loadAliasConfig() (*config.AliasConfig, error) {
	return config.EnsureAliases(aliasesPath)
}

func aliasListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [category]",
		Short: "List aliases, optionally for one category",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadAliasConfig()
			if err != nil {
				return err
			}

			categories := parse.AllCategories()
			if len(args) == 1 {
				categories = []parse.Category{parse.Category(args[0])}
			}

			table := cfg.Table()
			for _, category := range categories {
				entries, ok := table[category]
				if !ok || entries == nil {
					return fmt.Errorf("unknown alias category %q", category)
				}
				fmt.Printf("%s:\n", category)
				if len(entries) == 0 {
					fmt.Println("  (none)")
					continue
				}
				abbrevs := make([]string, 0, len(entries))
				for abbrev := range entries {
					abbrevs = append(abbrevs, abbrev)
				}
				sort.Strings(abbrevs)
				for _, abbrev := range abbrevs {
					fmt.Printf("  %s -> %s\n", abbrev, entries[abbrev])
				}
			}
			return nil
		},
	}
}

func aliasAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add [category] [abbrev] [canonical term]",
		Short: "Add or replace an alias",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadAliasConfig()
			if err != nil {
				return err
			}

			category := parse.Category(args[0])
			abbrev := strings.ToLower(args[1])
			canonical := strings.ToLower(strings.Join(args[2:], " "))

			if err := cfg.Set(category, abbrev, canonical); err != nil {
				return err
			}
			if err := cfg.SaveToFile(aliasesPath); err != nil {
				return err
			}

			fmt.Printf("%s: %s -> %s\n", category, abbrev, canonical)
			return nil
		},
	}
}

func aliasRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove [category] [abbrev]",
		Short: "Remove an alias",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadAliasConfig()
			if err != nil {
				return err
			}

			category := parse.Category(args[0])
			abbrev := strings.ToLower(args[1])

			if err := cfg.Remove(category, abbrev); err != nil {
				return err
			}
			if err := cfg.SaveToFile(aliasesPath); err != nil {
				return err
			}

			fmt.Printf("removed %s from %s\n", abbrev, category)
			return nil
		},
	}
}

func aliasSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search [term]",
		Short: "Search aliases by abbreviation or canonical term",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadAliasConfig()
			if err != nil {
				return err
			}

			term := strings.ToLower(args[0])
			found := false
			table := cfg.Table()
			for _, category := range parse.AllCategories() {
				for abbrev, canonical := range table[category] {
					if strings.Contains(abbrev, term) || strings.Contains(canonical, term) {
						fmt.Printf("%s: %s -> %s\n", category, abbrev, canonical)
						found = true
					}
				}
			}
			if !found {
				fmt.Printf("No aliases matching %q\n", term)
			}
			return nil
		},
	}
}

func askCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question about your log",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := getStore()
			if err != nil {
				return err
			}
			defer s.Close()

			q, err := query.New(s)
			if err != nil {
				return err
			}

			answer, err := q.Ask(strings.Join(args, " "))
			if err != nil {
				return err
			}

			fmt.Println(answer)
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

			cfg, err := config.EnsureAliases(aliasesPath)
			if err != nil {
				return err
			}
			aliases := parse.NewAliases(cfg.Table())

			s, err := getStore()
			if err != nil {
				return err
			}
			// Note: don't defer s.Close() as server runs indefinitely

			// Reload aliases when the file changes, without restarting.
			watcher, err := config.NewWatcher(config.WatcherConfig{
				Path:   aliasesPath,
				Logger: logger,
				Apply: func(c *config.AliasConfig) {
					aliases.Reload(c.Table())
				},
			})
			if err != nil {
				return err
			}
			if err := watcher.Start(context.Background()); err != nil {
				return err
			}
			defer watcher.Stop()

			server := api.New(s, parse.New(aliases), addr, logger)
			return server.Run()
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "server address")
	return cmd
}
