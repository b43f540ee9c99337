package graph

import "sort"

// HubStage is a stage that several others are anchored to
type HubStage struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Degree    int    `json:"degree"`
	InDegree  int    `json:"in_degree"`
	OutDegree int    `json:"out_degree"`
}

// DegreeBucket is one bucket in the degree histogram
type DegreeBucket struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// TopologyReport contains topology analysis results
type TopologyReport struct {
	TotalStages       int            `json:"total_stages"`
	TotalConnections  int            `json:"total_connections"`
	NumComponents     int            `json:"num_components"`
	LargestComponent  int            `json:"largest_component"`
	SmallestComponent int            `json:"smallest_component"`
	RootIDs           []int          `json:"root_ids"`
	LeafIDs           []int          `json:"leaf_ids"`
	OrphanCount       int            `json:"orphan_count"`
	OrphanIDs         []int          `json:"orphan_ids"`
	MaxDepth          int            `json:"max_depth"`
	DegreeHistogram   []DegreeBucket `json:"degree_histogram"`
	Hubs              []HubStage     `json:"hubs"`
}

// ComputeTopology analyzes the stage graph: components, roots and leaves,
// anchor depth, degree distribution, hubs
func ComputeTopology(snap *Snapshot, hubThreshold, topN int) *TopologyReport {
	totalStages := len(snap.Stages)
	totalEdges := len(snap.Edges)

	if totalStages == 0 {
		return &TopologyReport{
			DegreeHistogram: defaultHistogram(),
		}
	}

	// Connected diagrams via UnionFind
	ids := snap.StageIDs()
	uf := NewUnionFind(ids)
	for _, e := range snap.Edges {
		uf.Union(e.Source, e.Target)
	}

	components := uf.Components()
	largest, smallest := 0, totalStages
	for _, c := range components {
		size := uf.Size(c[0])
		if size > largest {
			largest = size
		}
		if size < smallest {
			smallest = size
		}
	}

	var roots, leaves, orphans []int
	maxDepth := 0
	for _, id := range ids {
		if len(snap.InAdj[id]) == 0 {
			roots = append(roots, id)
		}
		if len(snap.OutAdj[id]) == 0 {
			leaves = append(leaves, id)
		}
		if len(snap.Adj[id]) == 0 {
			orphans = append(orphans, id)
		}
		if d := snap.Stages[id].Depth; d > maxDepth {
			maxDepth = d
		}
	}
	orphanCount := len(orphans)
	if len(orphans) > topN {
		orphans = orphans[:topN]
	}

	buckets := [4]int{}
	for _, id := range ids {
		buckets[degreeBucket(len(snap.Adj[id]))]++
	}
	histogram := defaultHistogram()
	for i := range histogram {
		histogram[i].Count = buckets[i]
	}

	// Hubs: out-degree above threshold
	var hubs []HubStage
	for _, id := range ids {
		out := len(snap.OutAdj[id])
		if out > hubThreshold {
			hubs = append(hubs, HubStage{
				ID:        id,
				Title:     snap.Stages[id].Title,
				Degree:    len(snap.Adj[id]),
				InDegree:  len(snap.InAdj[id]),
				OutDegree: out,
			})
		}
	}
	sort.SliceStable(hubs, func(i, j int) bool { return hubs[i].OutDegree > hubs[j].OutDegree })
	if len(hubs) > topN {
		hubs = hubs[:topN]
	}

	return &TopologyReport{
		TotalStages:       totalStages,
		TotalConnections:  totalEdges,
		NumComponents:     len(components),
		LargestComponent:  largest,
		SmallestComponent: smallest,
		RootIDs:           roots,
		LeafIDs:           leaves,
		OrphanCount:       orphanCount,
		OrphanIDs:         orphans,
		MaxDepth:          maxDepth,
		DegreeHistogram:   histogram,
		Hubs:              hubs,
	}
}

func defaultHistogram() []DegreeBucket {
	return []DegreeBucket{{Label: "0"}, {Label: "1"}, {Label: "2-3"}, {Label: "4+"}}
}

func degreeBucket(degree int) int {
	switch {
	case degree == 0:
		return 0
	case degree == 1:
		return 1
	case degree <= 3:
		return 2
	default:
		return 3
	}
}
