package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-riskgraph/pkg/algorithms"
	"github.com/dd0wney/cluso-riskgraph/pkg/graph"
	"github.com/dd0wney/cluso-riskgraph/pkg/scoring"
)

// nodeScore is one row of analyze output. Fields of engines that were not
// run are omitted.
type nodeScore struct {
	ID           string         `json:"id"`
	Type         graph.NodeType `json:"type,omitempty"`
	Degree       *int           `json:"degree,omitempty"`
	Closeness    *float64       `json:"closeness,omitempty"`
	Articulation *bool          `json:"articulation,omitempty"`
	RiskScore    *int           `json:"risk_score,omitempty"`
	Tier         string         `json:"tier,omitempty"`
	Labels       []string       `json:"labels,omitempty"`
}

func newAnalyzeCmd(g *globalFlags) *cobra.Command {
	var (
		engine     string
		nodeTypes  []string
		edgeTypes  []string
		outputPath string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Compute scores for every node without touching the label store",
		Long: `analyze runs the degree, articulation and closeness engines against one
snapshot and prints the per-node scores. With --engine all it also prints
the fused risk score, tier and labels each node would receive.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			provider, err := g.snapshotProvider(ctx)
			if err != nil {
				return err
			}
			snap, err := provider.Snapshot(ctx)
			if err != nil {
				return err
			}

			rows := make([]nodeScore, snap.Len())
			for i, n := range snap.Nodes() {
				rows[i] = nodeScore{ID: n.ID, Type: n.Type}
			}

			all := engine == "all"
			if !all && engine != "degree" && engine != "closeness" && engine != "articulation" {
				return configError{fmt.Errorf("unknown engine %q", engine)}
			}

			if all || engine == "degree" {
				var degree map[string]int
				if len(nodeTypes) > 0 || len(edgeTypes) > 0 {
					degree = algorithms.Degree(snap, algorithms.DegreeFilter{
						NodeTypes: toNodeTypes(nodeTypes),
						EdgeTypes: toEdgeTypes(edgeTypes),
					})
				} else {
					degree = algorithms.DegreeByType(snap, cfg.EdgeTypeFilters)
				}
				for i := range rows {
					if d, ok := degree[rows[i].ID]; ok {
						rows[i].Degree = &d
					}
				}
			}
			if all || engine == "articulation" {
				cut := algorithms.ArticulationPoints(snap)
				for i := range rows {
					_, ok := cut[rows[i].ID]
					rows[i].Articulation = &ok
				}
			}
			if all || engine == "closeness" {
				closeness, err := algorithms.Closeness(ctx, snap, algorithms.ClosenessOptions{
					MaxNodes: cfg.MaxNodesForClosenessComputation,
					Workers:  cfg.Maintenance.ClosenessWorkers,
				})
				if err != nil {
					return err
				}
				for i := range rows {
					c := closeness[rows[i].ID]
					rows[i].Closeness = &c
				}
			}
			if all {
				classifier := scoring.NewClassifier(cfg)
				for i := range rows {
					in := scoring.Inputs{Closeness: *rows[i].Closeness, Articulation: *rows[i].Articulation}
					if rows[i].Degree != nil {
						in.Degree = *rows[i].Degree
					}
					res := classifier.Classify(in)
					rows[i].RiskScore = &res.RiskScore
					rows[i].Tier = res.Tier.String()
					rows[i].Labels = res.Labels
				}
			}

			return writeReport(cmd.OutOrStdout(), outputPath, rows)
		},
	}

	cmd.Flags().StringVar(&engine, "engine", "all", "Engine to run: degree, articulation, closeness or all")
	cmd.Flags().StringSliceVar(&nodeTypes, "node-types", nil, "Restrict degree scoring to these node types")
	cmd.Flags().StringSliceVar(&edgeTypes, "edge-types", nil, "Count only these edge types towards degree")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write scores to this file instead of stdout")
	return cmd
}

func toNodeTypes(in []string) []graph.NodeType {
	out := make([]graph.NodeType, len(in))
	for i, s := range in {
		out[i] = graph.NodeType(s)
	}
	return out
}

func toEdgeTypes(in []string) []graph.EdgeType {
	out := make([]graph.EdgeType, len(in))
	for i, s := range in {
		out[i] = graph.EdgeType(s)
	}
	return out
}
