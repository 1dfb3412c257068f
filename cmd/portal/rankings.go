package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/application/query"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/ranking"
	"github.com/RasyaAndrean/SHCOOL-Platform-sub001/internal/domain/shared"
)

type rankingsFlags struct {
	limit  int
	asJSON bool
}

func newRankingsCommand(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rankings",
		Short: "Compute or inspect the class ranking",
	}

	var computeFlags rankingsFlags
	compute := &cobra.Command{
		Use:   "compute",
		Short: "Recompute the ranking from stored data and print it",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), rt.cfg, rt.log)
			if err != nil {
				return err
			}
			defer a.Close()

			snap, report, err := a.engine.CalculateRankings(cmd.Context())
			if err != nil {
				return err
			}
			return printRankings(cmd.OutOrStdout(), snap, report, computeFlags)
		},
	}
	addRankingsFlags(compute, &computeFlags)

	var showFlags rankingsFlags
	show := &cobra.Command{
		Use:   "show",
		Short: "Print the latest stored snapshot without recomputing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context(), rt.cfg, rt.log)
			if err != nil {
				return err
			}
			defer a.Close()

			snap, err := a.snapshots.Latest(cmd.Context())
			if err != nil {
				if shared.IsNotFound(err) {
					fmt.Fprintln(cmd.OutOrStdout(), "no stored ranking snapshot")
					return nil
				}
				return err
			}
			return printRankings(cmd.OutOrStdout(), snap, &ranking.Report{}, showFlags)
		},
	}
	addRankingsFlags(show, &showFlags)

	cmd.AddCommand(compute, show)
	return cmd
}

func addRankingsFlags(cmd *cobra.Command, f *rankingsFlags) {
	cmd.Flags().IntVarP(&f.limit, "limit", "n", 0, "print only the top N entries (0 prints all)")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print JSON instead of a table")
}

// rankingsOutput is the --json document.
type rankingsOutput struct {
	SnapshotID    string                  `json:"snapshot_id"`
	CalculatedAt  time.Time               `json:"calculated_at"`
	TotalStudents int                     `json:"total_students"`
	AverageScore  float64                 `json:"average_score"`
	Entries       []query.RankingEntryDTO `json:"entries"`
	Orphans       []ranking.Orphan        `json:"orphans"`
	Anomalies     []ranking.Anomaly       `json:"anomalies"`
}

func printRankings(w io.Writer, snap *ranking.Snapshot, report *ranking.Report, f rankingsFlags) error {
	entries := snap.Entries
	if f.limit > 0 {
		entries = snap.Top(f.limit)
	}

	if f.asJSON {
		out := rankingsOutput{
			SnapshotID:    snap.ID,
			CalculatedAt:  snap.CalculatedAt,
			TotalStudents: snap.Count(),
			AverageScore:  snap.AverageScore(),
			Entries:       query.NewRankingEntryDTOs(entries),
			Orphans:       report.Orphans,
			Anomalies:     report.Anomalies,
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(w, "snapshot %s (%d students, avg %.2f)\n", snap.ID, snap.Count(), snap.AverageScore())

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tMEDAL\tSTUDENT\tATTENDANCE\tPROGRESS\tQUIZ\tACHIEVEMENT\tTOTAL\tCHANGE")
	for _, e := range entries {
		medal := string(e.Medal)
		if medal == "" {
			medal = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%s\n",
			e.Rank, medal, e.StudentName,
			e.AttendanceScore, e.ProgressScore, e.QuizScore, e.AchievementScore,
			e.TotalScore, e.RankChange)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, o := range report.Orphans {
		fmt.Fprintf(w, "orphan: %s record for unknown student %s\n", o.Source, o.StudentID)
	}
	for _, an := range report.Anomalies {
		fmt.Fprintf(w, "anomaly: %s for %s: %s\n", an.Source, an.StudentID, an.Detail)
	}
	return nil
}
