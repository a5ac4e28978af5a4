package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/sercha-events/internal/core/domain"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources",
	Long: `Lists the sources declared in the sources file with their provider,
delivery mode, dedupe strategy, interval and webhook event types.

Each source is validated; invalid ones are flagged with the reason.`,
	Args: cobra.NoArgs,
	RunE: runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

var sourceHeaders = []string{"KEY", "PROVIDER", "MODE", "DEDUPE", "INTERVAL", "EVENTS", "STATUS"}

func runSources(cmd *cobra.Command, _ []string) error {
	opts, err := loadOptions(cmd)
	if err != nil {
		return err
	}
	sources, err := opts.loadSources()
	if err != nil {
		return err
	}

	if len(sources) == 0 {
		cmd.Printf("No sources configured in %s\n", opts.sourcesPath)
		return nil
	}

	rows := make([][]string, 0, len(sources))
	for i := range sources {
		rows = append(rows, sourceRow(&sources[i]))
	}

	out := cmd.OutOrStdout()
	if isTTY(out) {
		cmd.Println(renderTable(rows))
		return nil
	}
	return writePlain(out, rows)
}

func sourceRow(s *domain.SourceConfig) []string {
	interval := "-"
	if s.Mode.AllowsPolling() && s.Interval > 0 {
		interval = s.Interval.String()
	}
	events := "-"
	if s.Mode.AllowsWebhook() && len(s.WebhookEventTypes) > 0 {
		events = strings.Join(s.WebhookEventTypes, ",")
	}
	status := "ok"
	if err := s.Validate(); err != nil {
		status = "invalid: " + err.Error()
	}
	return []string{s.Key, s.Provider, string(s.Mode), string(s.Dedupe), interval, events, status}
}

func renderTable(rows [][]string) string {
	statusCol := len(sourceHeaders) - 1
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers(sourceHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == statusCol && strings.HasPrefix(rows[row][col], "invalid"):
				return errorStyle
			case col == statusCol:
				return okStyle
			case rows[row][col] == "-":
				return mutedStyle
			default:
				return cellStyle
			}
		}).
		String()
}

func writePlain(w io.Writer, rows [][]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(sourceHeaders, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
