package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"ukenergy/energyflow/internal/graph"
)

var (
	analyzeJSON         bool
	analyzeFrom         int
	analyzeTopN         int
	analyzeHubThreshold int
	analyzeEpsilon      float64
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <chart>",
	Short: "Analyze a chart's stage graph: topology, flow balance, integrity score",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := ResolveChart(args[0], chartDir())
		if err != nil {
			return err
		}

		snap := graph.SnapshotFromChart(c)
		if analyzeFrom >= 0 {
			if _, ok := snap.Stages[analyzeFrom]; !ok {
				return fmt.Errorf("chart %s has no stage %d", c.Name, analyzeFrom)
			}
			snap = snap.FilterFrom(analyzeFrom)
		}

		config := graph.DefaultConfig()
		config.HubThreshold = analyzeHubThreshold
		config.TopN = analyzeTopN
		config.Epsilon = cfg.BalanceEpsilon
		if analyzeEpsilon > 0 {
			config.Epsilon = analyzeEpsilon
		}
		config.Tolerance = c.Tolerance()

		report := graph.Analyze(snap, config)

		if analyzeJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}

		printHumanReadable(cmd.OutOrStdout(), report, snap)
		return nil
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "Output as JSON")
	analyzeCmd.Flags().IntVar(&analyzeFrom, "from", -1, "Scope analysis to this stage and the stages anchored to it")
	analyzeCmd.Flags().IntVar(&analyzeTopN, "top-n", 10, "Number of top items to show per section")
	analyzeCmd.Flags().IntVar(&analyzeHubThreshold, "hub-threshold", 1, "Anchored stages needed to call a stage a hub")
	analyzeCmd.Flags().Float64Var(&analyzeEpsilon, "epsilon", 0, "Stage balance tolerance (default ENERGYFLOW_BALANCE_EPSILON)")
	rootCmd.AddCommand(analyzeCmd)
}

func printHumanReadable(w io.Writer, report *graph.AnalysisReport, snap *graph.Snapshot) {
	// Integrity bar
	barLen := int(report.IntegrityScore * 20)
	if barLen > 20 {
		barLen = 20
	}
	bar := strings.Repeat("█", barLen) + strings.Repeat("░", 20-barLen)
	fmt.Fprintf(w, "\n  Chart Integrity: %.0f%%  [%s]\n", report.IntegrityScore*100, bar)
	fmt.Fprintf(w, "  breakdown: connectivity=%.2f balance=%.2f connections=%.2f labels=%.2f\n\n",
		report.IntegrityBreakdown.Connectivity,
		report.IntegrityBreakdown.Balance,
		report.IntegrityBreakdown.Connections,
		report.IntegrityBreakdown.Labels)

	// Topology
	t := report.Topology
	fmt.Fprintln(w, "  TOPOLOGY")
	fmt.Fprintln(w, "  ────────────────────────────────────────")
	fmt.Fprintf(w, "  Stages: %d  Connections: %d  Diagrams: %d\n", t.TotalStages, t.TotalConnections, t.NumComponents)
	fmt.Fprintf(w, "  Largest diagram: %d  Smallest: %d  Max anchor depth: %d\n", t.LargestComponent, t.SmallestComponent, t.MaxDepth)
	fmt.Fprintf(w, "  Roots: %s  Leaves: %s\n", stageList(t.RootIDs), stageList(t.LeafIDs))

	if t.OrphanCount > 0 {
		fmt.Fprintf(w, "  Unconnected stages: %d\n", t.OrphanCount)
		for _, id := range t.OrphanIDs {
			fmt.Fprintf(w, "    - %d (%s)\n", id, stageTitle(snap, id))
		}
	}

	// Degree distribution
	fmt.Fprintln(w, "\n  Degree distribution:")
	for _, b := range t.DegreeHistogram {
		if b.Count > 0 {
			barWidth := int(math.Log2(float64(b.Count))) + 2
			fmt.Fprintf(w, "    %5s: %4d  %s\n", b.Label, b.Count, strings.Repeat("=", barWidth))
		}
	}

	// Hubs
	if len(t.Hubs) > 0 {
		fmt.Fprintln(w, "\n  Hub stages (anchored stages > threshold):")
		for _, hub := range t.Hubs {
			fmt.Fprintf(w, "    %d out=%d (in=%d)  %s\n", hub.ID, hub.OutDegree, hub.InDegree, truncTitle(hub.Title, 40))
		}
	}

	// Balance
	b := report.Balance
	fmt.Fprintln(w, "\n  BALANCE")
	fmt.Fprintln(w, "  ────────────────────────────────────────")
	fmt.Fprintf(w, "  Source total: %.6g  Flows: %d  Unlabelled: %d  (epsilon %g)\n",
		b.SourceTotal, b.FlowCount, b.UnlabelledCount, b.Epsilon)
	for _, s := range b.Stages {
		mark := " "
		if s.Unbalanced {
			mark = "!"
		}
		fmt.Fprintf(w, "  %s %2d  in=%-10.6g out=%-10.6g net=%-+11.3g %s\n",
			mark, s.ID, s.Inputs, s.Outputs, s.Net, truncTitle(s.Title, 30))
	}
	if b.UnbalancedCount > 0 {
		fmt.Fprintf(w, "  %d unbalanced stage(s); worst is %d (net %.3g)\n", b.UnbalancedCount, b.Worst.ID, b.Worst.Net)
	}
	if len(b.BrokenConnections) > 0 {
		fmt.Fprintf(w, "  %d broken connection(s):\n", len(b.BrokenConnections))
		for _, bc := range b.BrokenConnections {
			e := bc.Edge
			detail := fmt.Sprintf("mismatch %.3g", bc.Mismatch)
			if bc.OutOfRange {
				detail = "flow index out of range"
			}
			fmt.Fprintf(w, "    %d[%d] -> %d[%d]  %s\n", e.Source, e.SourceFlow, e.Target, e.TargetFlow, detail)
		}
	}

	fmt.Fprintln(w)
}

func stageList(ids []int) string {
	if len(ids) == 0 {
		return "-"
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ",")
}

func stageTitle(snap *graph.Snapshot, id int) string {
	if st := snap.Stages[id]; st != nil {
		return truncTitle(st.Title, 50)
	}
	return "?"
}

func truncTitle(s string, max int) string {
	if len(s) <= max {
		return s
	}
	// Find a safe UTF-8 boundary
	truncated := s[:max]
	for len(truncated) > 0 && truncated[len(truncated)-1]>>6 == 2 {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated + "..."
}
