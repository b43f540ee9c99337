package graph

import "sort"

// StageInfo is a lightweight stage representation decoupled from chart types
type StageInfo struct {
	ID     int
	Title  string
	Flows  []float64
	Labels []string
	Prior  *int
	Depth  int // anchor hops from the stage's root
}

// EdgeInfo is an anchor: flow SourceFlow of stage Source feeds flow TargetFlow of stage Target
type EdgeInfo struct {
	Source     int `json:"source"`
	Target     int `json:"target"`
	SourceFlow int `json:"source_flow"`
	TargetFlow int `json:"target_flow"`
}

// Snapshot holds a stage graph with precomputed adjacency lists and root map
type Snapshot struct {
	Stages map[int]*StageInfo
	Edges  []EdgeInfo
	Adj    map[int][]int // undirected
	OutAdj map[int][]int // directed: prior -> anchored stages
	InAdj  map[int][]int // directed: stage -> prior
	Roots  map[int]int   // stage -> unanchored ancestor, -1 on a cycle
}

// NewSnapshot builds a Snapshot from raw stages and edges. Edges whose ends
// are missing are dropped.
func NewSnapshot(stages []*StageInfo, edges []EdgeInfo) *Snapshot {
	stageMap := make(map[int]*StageInfo, len(stages))
	adj := make(map[int][]int)
	outAdj := make(map[int][]int)
	inAdj := make(map[int][]int)

	for _, s := range stages {
		stageMap[s.ID] = s
		adj[s.ID] = nil // ensure entry exists
		outAdj[s.ID] = nil
		inAdj[s.ID] = nil
	}

	kept := make([]EdgeInfo, 0, len(edges))
	for _, e := range edges {
		if _, ok := stageMap[e.Source]; !ok {
			continue
		}
		if _, ok := stageMap[e.Target]; !ok {
			continue
		}
		kept = append(kept, e)
		adj[e.Source] = append(adj[e.Source], e.Target)
		adj[e.Target] = append(adj[e.Target], e.Source)
		outAdj[e.Source] = append(outAdj[e.Source], e.Target)
		inAdj[e.Target] = append(inAdj[e.Target], e.Source)
	}

	snap := &Snapshot{
		Stages: stageMap,
		Edges:  kept,
		Adj:    adj,
		OutAdj: outAdj,
		InAdj:  inAdj,
	}
	snap.Roots = snap.computeRoots()
	snap.computeDepths()
	return snap
}

// FilterFrom returns a new snapshot containing only stage id and the stages
// anchored to it, directly or through other stages. The kept stage loses its
// anchor so it becomes the root.
func (s *Snapshot) FilterFrom(id int) *Snapshot {
	included := make(map[int]bool)
	for sid := range s.Stages {
		isDescendantOf(sid, id, s.Stages, included, map[int]bool{})
	}

	var stages []*StageInfo
	for _, sid := range s.StageIDs() {
		if !included[sid] {
			continue
		}
		cp := *s.Stages[sid]
		if sid == id {
			cp.Prior = nil
		}
		stages = append(stages, &cp)
	}

	var edges []EdgeInfo
	for _, e := range s.Edges {
		if included[e.Source] && included[e.Target] {
			edges = append(edges, e)
		}
	}
	return NewSnapshot(stages, edges)
}

// StageIDs returns a sorted list of all stage IDs (for deterministic output)
func (s *Snapshot) StageIDs() []int {
	ids := make([]int, 0, len(s.Stages))
	for id := range s.Stages {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func isDescendantOf(id, ancestor int, stages map[int]*StageInfo, cache, visiting map[int]bool) bool {
	if id == ancestor {
		cache[id] = true
		return true
	}
	if cached, ok := cache[id]; ok {
		return cached
	}
	st, ok := stages[id]
	if !ok || st.Prior == nil || visiting[id] {
		cache[id] = false
		return false
	}
	visiting[id] = true
	result := isDescendantOf(*st.Prior, ancestor, stages, cache, visiting)
	cache[id] = result
	return result
}

// computeDepths counts anchor hops up to each stage's root
func (s *Snapshot) computeDepths() {
	for _, id := range s.StageIDs() {
		depth := 0
		seen := map[int]bool{id: true}
		for cur := s.Stages[id]; cur.Prior != nil; {
			next, ok := s.Stages[*cur.Prior]
			if !ok || seen[next.ID] {
				break
			}
			seen[next.ID] = true
			depth++
			cur = next
		}
		s.Stages[id].Depth = depth
	}
}

func (s *Snapshot) computeRoots() map[int]int {
	roots := make(map[int]int, len(s.Stages))
	for id := range s.Stages {
		roots[id] = findRoot(id, s.Stages)
	}
	return roots
}

func findRoot(id int, stages map[int]*StageInfo) int {
	current := id
	visited := make(map[int]bool)
	for {
		if visited[current] {
			return -1 // cycle
		}
		visited[current] = true
		st, ok := stages[current]
		if !ok {
			return -1
		}
		if st.Prior == nil {
			return current
		}
		if _, ok := stages[*st.Prior]; !ok {
			return current
		}
		current = *st.Prior
	}
}
