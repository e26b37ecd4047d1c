package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/linkshelf/pkg/types"
)

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories or links",
		Long: `List prints a collection from the configured store in stored order.

Example:
  linkshelf list categories
  linkshelf list links --json`,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "categories",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE:  runListCategories,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "links",
		Short: "List links",
		Args:  cobra.NoArgs,
		RunE:  runListLinks,
	})
	return cmd
}

func runListCategories(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, err := openServices(cmd.Context(), cfg, log.Logger)
	if err != nil {
		return exitError(exitSysError, "open store: %s", err)
	}
	defer svc.Close()

	categories, err := svc.repo.Categories(cmd.Context())
	if err != nil {
		return exitError(exitSysError, "list categories: %s", err)
	}
	out := cmd.OutOrStdout()
	if flags.jsonMode {
		return printJSON(out, categories)
	}
	if len(categories) == 0 {
		fmt.Fprintln(out, "No categories found.")
		return nil
	}
	printTable(out, []string{"ID", "NAME", "ORDER"}, len(categories), func(i int) []string {
		c := categories[i]
		return []string{shortID(c.ID), truncate(c.Name, 40), formatOrder(c.Order)}
	})
	fmt.Fprintf(out, "Total: %d categor%s\n", len(categories), plural(len(categories), "y", "ies"))
	return nil
}

func runListLinks(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	svc, err := openServices(cmd.Context(), cfg, log.Logger)
	if err != nil {
		return exitError(exitSysError, "open store: %s", err)
	}
	defer svc.Close()

	links, err := svc.repo.Links(cmd.Context())
	if err != nil {
		return exitError(exitSysError, "list links: %s", err)
	}
	out := cmd.OutOrStdout()
	if flags.jsonMode {
		return printJSON(out, links)
	}
	if len(links) == 0 {
		fmt.Fprintln(out, "No links found.")
		return nil
	}
	printTable(out, []string{"ID", "TITLE", "URL", "CATEGORY", "ORDER"}, len(links), func(i int) []string {
		l := links[i]
		return []string{shortID(l.ID), truncate(l.Title, 30), truncate(l.URL, 50), shortID(l.CategoryID), formatOrder(l.Order)}
	})
	fmt.Fprintf(out, "Total: %d link%s\n", len(links), plural(len(links), "", "s"))
	return nil
}

// printTable writes an aligned table with a dashed rule under the header,
// trimming trailing whitespace from each line.
func printTable(out io.Writer, header []string, n int, row func(int) []string) {
	var sb strings.Builder
	w := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', 0)

	rule := make([]string, len(header))
	for i, h := range header {
		rule[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))
	fmt.Fprintln(w, strings.Join(rule, "\t"))
	for i := 0; i < n; i++ {
		fmt.Fprintln(w, strings.Join(row(i), "\t"))
	}
	w.Flush()

	for _, line := range strings.Split(strings.TrimRight(sb.String(), "\n"), "\n") {
		fmt.Fprintln(out, strings.TrimRight(line, " "))
	}
}

// shortID keeps the first 8 characters of an id for readability.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-3]) + "..."
	}
	return s
}

func formatOrder(o types.Order) string {
	return fmt.Sprintf("%g", float64(o))
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
