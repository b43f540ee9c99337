package graph

import (
	"fmt"

	"ukenergy/energyflow/internal/chart"
)

// SnapshotFromChart builds the stage graph of a chart definition
func SnapshotFromChart(c *chart.Chart) *Snapshot {
	stages := make([]*StageInfo, 0, len(c.Stages))
	var edges []EdgeInfo
	for i, s := range c.Stages {
		title := s.PatchLabel
		if title == "" {
			title = fmt.Sprintf("stage %d", i)
		}
		var prior *int
		if s.Prior != nil {
			p := *s.Prior
			prior = &p
			conn := s.ConnectPair()
			edges = append(edges, EdgeInfo{Source: p, Target: i, SourceFlow: conn[0], TargetFlow: conn[1]})
		}
		stages = append(stages, &StageInfo{
			ID:     i,
			Title:  title,
			Flows:  append([]float64(nil), s.Flows...),
			Labels: append([]string(nil), s.Labels...),
			Prior:  prior,
		})
	}
	return NewSnapshot(stages, edges)
}
