package main

import (
	"bufio"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"CineScanner/internal/app"
	"CineScanner/internal/domain"
)

var titleWithYear = regexp.MustCompile(`^(.*?)\s*\((\d{4})\)$`)

func newRootCommand(application *app.Application) *cobra.Command {
	root := &cobra.Command{
		Use:           "cinescanner",
		Short:         "Collects and reconciles movie ratings and reviews across sources",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newScrapeCommand(application),
		newLoadCommand(application),
		newStatusCommand(application),
	)
	return root
}

func newScrapeCommand(application *app.Application) *cobra.Command {
	var inputFile string
	cmd := &cobra.Command{
		Use:   "scrape [\"Title (Year)\"...]",
		Short: "Collect ratings and reviews for the given movies",
		Long: `Collect ratings and reviews for each movie from every configured
source. Movies are given as arguments in "Title (Year)" form, or one
per line in a file passed with --input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			queries, err := gatherQueries(args, inputFile)
			if err != nil {
				return err
			}
			if len(queries) == 0 {
				return fmt.Errorf("no movies given; pass titles or --input")
			}

			summary, outcomes, err := application.Pipeline().Run(cmd.Context(), queries)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(outcomes))
			for _, o := range outcomes {
				recommended := "-"
				if o.Rating.HasRecommendation {
					recommended = fmt.Sprintf("%.2f", o.Rating.Recommended)
				}
				rows = append(rows, []string{
					o.Movie.Title,
					yearOrDash(o.Movie.ReleaseYear),
					strconv.Itoa(o.ReviewsCollected),
					strconv.Itoa(o.DuplicatesDropped),
					recommended,
					o.Rating.Note,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Title", "Year", "Reviews", "Duplicates", "Rating", "Note"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintf(cmd.OutOrStdout(),
				"resolved %d, unresolved %d, reviews %d, duplicates %d, errors %d\n",
				summary.Resolved, summary.Unresolved, summary.ReviewsCollected,
				summary.DuplicatesDropped, summary.Errors)
			return nil
		},
	}
	cmd.Flags().StringVarP(&inputFile, "input", "i", "", "file with one \"Title (Year)\" per line")
	return cmd
}

func newLoadCommand(application *app.Application) *cobra.Command {
	return &cobra.Command{
		Use:   "load <dataset.csv>",
		Short: "Import a bulk movie dataset from a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			stats, err := application.Loader().Load(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "loaded %d of %d rows (%d skipped, %d errors)\n",
				stats.Loaded, stats.Total, stats.Skipped, stats.Errors)
			return nil
		},
	}
}

func newStatusCommand(application *app.Application) *cobra.Command {
	var recentRuns int
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what the database currently holds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := application.Repository().Status(cmd.Context(), recentRuns)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "movies %d, reviews %d, runs %d\n", st.Movies, st.Reviews, st.Runs)
			fmt.Fprintf(out, "reviews by source: %s\n", formatCounts(st.BySource))
			fmt.Fprintf(out, "reviews by category: %s\n\n", formatCounts(st.ByCategory))

			rows := make([][]string, 0, len(st.Collection))
			for _, m := range st.Collection {
				scraped := "-"
				if !m.ScrapedAt.IsZero() {
					scraped = m.ScrapedAt.Format("2006-01-02")
				}
				rows = append(rows, []string{
					m.Title,
					yearOrDash(m.ReleaseYear),
					m.IMDbID,
					formatRating(m.IMDbRating),
					formatRating(m.RTTomatometer),
					strconv.Itoa(m.ReviewCount),
					scraped,
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Title", "Year", "IMDb ID", "IMDb", "Tomatometer", "Reviews", "Scraped"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))

			if len(st.RecentRuns) > 0 {
				runRows := make([][]string, 0, len(st.RecentRuns))
				for _, r := range st.RecentRuns {
					runRows = append(runRows, []string{
						r.RunID,
						string(r.Source),
						r.Status,
						strconv.Itoa(r.ItemsCollected),
						r.Duration.String(),
						r.ErrorMessage,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Run", "Source", "Status", "Items", "Duration", "Error"},
					runRows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&recentRuns, "runs", 10, "number of recent run log entries to show")
	return cmd
}

func gatherQueries(args []string, inputFile string) ([]domain.MovieQuery, error) {
	var queries []domain.MovieQuery
	for _, arg := range args {
		queries = append(queries, parseQuery(arg))
	}
	if inputFile == "" {
		return queries, nil
	}

	f, err := os.Open(inputFile)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		queries = append(queries, parseQuery(line))
	}
	return queries, scanner.Err()
}

// parseQuery splits "Heat (1995)" into title and year. A spec without
// a trailing year is a title-only query.
func parseQuery(spec string) domain.MovieQuery {
	if m := titleWithYear.FindStringSubmatch(strings.TrimSpace(spec)); m != nil {
		year, _ := strconv.Atoi(m[2])
		return domain.MovieQuery{Title: m[1], Year: year}
	}
	return domain.MovieQuery{Title: strings.TrimSpace(spec)}
}

func yearOrDash(year int) string {
	if year == 0 {
		return "-"
	}
	return strconv.Itoa(year)
}

func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, counts[k]))
	}
	return strings.Join(parts, ", ")
}

func formatRating(v float64) string {
	if v == 0 {
		return "-"
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}
