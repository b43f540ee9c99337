package graph

import (
	"math"
	"strings"
)

// StageBalance is the flow accounting of one stage
type StageBalance struct {
	ID         int     `json:"id"`
	Title      string  `json:"title"`
	Inputs     float64 `json:"inputs"`
	Outputs    float64 `json:"outputs"` // negative
	Net        float64 `json:"net"`
	Unbalanced bool    `json:"unbalanced"`
}

// BrokenConnection is an anchor whose two flows are not equal and opposite
type BrokenConnection struct {
	Edge       EdgeInfo `json:"edge"`
	Mismatch   float64  `json:"mismatch"`
	OutOfRange bool     `json:"out_of_range,omitempty"`
}

// BalanceReport contains flow conservation results
type BalanceReport struct {
	Epsilon           float64            `json:"epsilon"`
	Stages            []StageBalance     `json:"stages"`
	UnbalancedCount   int                `json:"unbalanced_count"`
	Worst             *StageBalance      `json:"worst,omitempty"`
	SourceTotal       float64            `json:"source_total"` // inputs at root stages
	FlowCount         int                `json:"flow_count"`
	UnlabelledCount   int                `json:"unlabelled_count"`
	BrokenConnections []BrokenConnection `json:"broken_connections"`
}

// ComputeBalance checks every stage sums to zero within epsilon and every
// anchor joins equal and opposite flows within tolerance
func ComputeBalance(snap *Snapshot, epsilon, tolerance float64) *BalanceReport {
	r := &BalanceReport{Epsilon: epsilon}
	joined := make(map[[2]int]bool)
	for _, e := range snap.Edges {
		joined[[2]int{e.Source, e.SourceFlow}] = true
		joined[[2]int{e.Target, e.TargetFlow}] = true
	}

	worst := -1
	for _, id := range snap.StageIDs() {
		st := snap.Stages[id]
		b := StageBalance{ID: id, Title: st.Title}
		for i, f := range st.Flows {
			if f > 0 {
				b.Inputs += f
			} else {
				b.Outputs += f
			}
			if math.Abs(f) < tolerance {
				continue
			}
			r.FlowCount++
			if !joined[[2]int{id, i}] && (i >= len(st.Labels) || strings.TrimSpace(st.Labels[i]) == "") {
				r.UnlabelledCount++
			}
		}
		b.Net = b.Inputs + b.Outputs
		b.Unbalanced = math.Abs(b.Net) > epsilon
		if b.Unbalanced {
			r.UnbalancedCount++
		}
		if st.Prior == nil {
			r.SourceTotal += b.Inputs
		}
		r.Stages = append(r.Stages, b)
		if worst < 0 || math.Abs(b.Net) > math.Abs(r.Stages[worst].Net) {
			worst = len(r.Stages) - 1
		}
	}
	if worst >= 0 {
		w := r.Stages[worst]
		r.Worst = &w
	}

	for _, e := range snap.Edges {
		from, ok1 := flowAt(snap, e.Source, e.SourceFlow)
		to, ok2 := flowAt(snap, e.Target, e.TargetFlow)
		if !ok1 || !ok2 {
			r.BrokenConnections = append(r.BrokenConnections, BrokenConnection{Edge: e, OutOfRange: true})
			continue
		}
		if m := from + to; math.Abs(m) >= tolerance {
			r.BrokenConnections = append(r.BrokenConnections, BrokenConnection{Edge: e, Mismatch: m})
		}
	}
	return r
}

func flowAt(snap *Snapshot, stage, flow int) (float64, bool) {
	st, ok := snap.Stages[stage]
	if !ok || flow < 0 || flow >= len(st.Flows) {
		return 0, false
	}
	return st.Flows[flow], true
}
