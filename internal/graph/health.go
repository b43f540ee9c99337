package graph

import "math"

// IntegrityBreakdown shows the sub-scores of the integrity formula
type IntegrityBreakdown struct {
	Connectivity float64 `json:"connectivity"`
	Balance      float64 `json:"balance"`
	Connections  float64 `json:"connections"`
	Labels       float64 `json:"labels"`
}

// AnalysisReport is the full analysis result
type AnalysisReport struct {
	IntegrityScore     float64            `json:"integrity_score"`
	IntegrityBreakdown IntegrityBreakdown `json:"integrity_breakdown"`
	Topology           *TopologyReport    `json:"topology"`
	Balance            *BalanceReport     `json:"balance"`
}

// AnalyzerConfig holds analysis parameters
type AnalyzerConfig struct {
	HubThreshold int
	TopN         int
	Epsilon      float64 // stage balance
	Tolerance    float64 // connection match
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *AnalyzerConfig {
	return &AnalyzerConfig{
		HubThreshold: 1,
		TopN:         10,
		Epsilon:      1e-3,
		Tolerance:    1e-6,
	}
}

// Analyze runs all analyses and computes a composite integrity score
func Analyze(snap *Snapshot, config *AnalyzerConfig) *AnalysisReport {
	topology := ComputeTopology(snap, config.HubThreshold, config.TopN)
	balance := ComputeBalance(snap, config.Epsilon, config.Tolerance)

	total := float64(topology.TotalStages)

	var connectivity, balanceScore, connections, labels float64

	if topology.NumComponents > 0 {
		connectivity = clamp(1.0/float64(topology.NumComponents), 0, 1)
	}
	if total > 0 {
		balanceScore = clamp(1.0-float64(balance.UnbalancedCount)/total, 0, 1)
	}
	connections = 1
	if topology.TotalConnections > 0 {
		connections = clamp(1.0-float64(len(balance.BrokenConnections))/float64(topology.TotalConnections), 0, 1)
	}
	labels = 1
	if balance.FlowCount > 0 {
		labels = clamp(1.0-math.Min(float64(balance.UnlabelledCount)/float64(balance.FlowCount), 0.5)*2.0, 0, 1)
	}
	if total == 0 {
		connections, labels = 0, 0
	}

	score := 0.25*connectivity + 0.35*balanceScore + 0.25*connections + 0.15*labels

	return &AnalysisReport{
		IntegrityScore: score,
		IntegrityBreakdown: IntegrityBreakdown{
			Connectivity: connectivity,
			Balance:      balanceScore,
			Connections:  connections,
			Labels:       labels,
		},
		Topology: topology,
		Balance:  balance,
	}
}

func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
