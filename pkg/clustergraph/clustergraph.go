// Package clustergraph builds a diagnostic view of the clustering that
// drives a flatten run: one node per cluster sized by population, with
// edges between spatially adjacent clusters.
package clustergraph

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/maplab/flatland/pkg/flatten"
	"github.com/maplab/flatland/pkg/pointset"
)

// Node is one cluster.
type Node struct {
	ID       int            `json:"id"`
	Centroid pointset.Point `json:"centroid"`
	Size     int            `json:"size"`
}

// Edge connects two adjacent clusters.
type Edge struct {
	From int     `json:"from"`
	To   int     `json:"to"`
	Dist float64 `json:"dist"`
}

// Graph is the cluster adjacency graph.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// neighborDegree is how many nearest clusters each cluster connects to.
const neighborDegree = 3

// Build clusters points exactly as a flatten run with the same
// parameters would, then connects each cluster to its nearest neighbors.
func Build(points pointset.PointSet, clusterCount int, seed uint64) (*Graph, error) {
	params := flatten.DefaultParams()
	params.ClusterCount = clusterCount
	params.Seed = seed
	if err := params.Validate(len(points)); err != nil {
		return nil, err
	}
	if points.DistinctCount() < clusterCount {
		return nil, &flatten.DegenerateInputError{
			Distinct:     points.DistinctCount(),
			ClusterCount: clusterCount,
		}
	}

	labels, err := flatten.NewKMeans().Cluster(points, clusterCount, flatten.SeededRNG(seed))
	if err != nil {
		return nil, err
	}

	sums := make([]pointset.Point, clusterCount)
	sizes := make([]int, clusterCount)
	for i, label := range labels {
		sums[label] = sums[label].Add(points[i])
		sizes[label]++
	}

	g := &Graph{Nodes: make([]Node, clusterCount)}
	for c := 0; c < clusterCount; c++ {
		centroid := pointset.Point{}
		if sizes[c] > 0 {
			centroid = sums[c].Scale(1 / float64(sizes[c]))
		}
		g.Nodes[c] = Node{ID: c, Centroid: centroid, Size: sizes[c]}
	}
	g.Edges = adjacency(g.Nodes)
	return g, nil
}

// adjacency connects each node to its nearest neighbors, deduplicated.
func adjacency(nodes []Node) []Edge {
	type pair struct{ a, b int }
	seen := make(map[pair]bool)
	var edges []Edge

	degree := min(neighborDegree, len(nodes)-1)
	for _, n := range nodes {
		others := make([]Node, 0, len(nodes)-1)
		for _, m := range nodes {
			if m.ID != n.ID {
				others = append(others, m)
			}
		}
		sort.Slice(others, func(i, j int) bool {
			di := n.Centroid.DistSq(others[i].Centroid)
			dj := n.Centroid.DistSq(others[j].Centroid)
			if di != dj {
				return di < dj
			}
			return others[i].ID < others[j].ID
		})

		for _, m := range others[:degree] {
			key := pair{min(n.ID, m.ID), max(n.ID, m.ID)}
			if seen[key] {
				continue
			}
			seen[key] = true
			edges = append(edges, Edge{From: key.a, To: key.b, Dist: n.Centroid.Dist(m.Centroid)})
		}
	}

	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		return edges[i].To < edges[j].To
	})
	return edges
}

// ToDOT converts the graph to Graphviz DOT format. Node area scales with
// cluster population.
func ToDOT(g *Graph) string {
	var buf bytes.Buffer
	buf.WriteString("graph clusters {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=circle, style=filled, fillcolor=lightsteelblue, fontsize=12];\n")
	buf.WriteString("\n")

	maxSize := 1
	for _, n := range g.Nodes {
		if n.Size > maxSize {
			maxSize = n.Size
		}
	}

	for _, n := range g.Nodes {
		attrs := []string{
			fmt.Sprintf("label=\"%d\\n(%d)\"", n.ID, n.Size),
			fmt.Sprintf("width=%.2f", 0.4+0.8*float64(n.Size)/float64(maxSize)),
			fmt.Sprintf("pos=\"%.3f,%.3f!\"", n.Centroid.X*10, (1-n.Centroid.Y)*10),
		}
		fmt.Fprintf(&buf, "  %d [%s];\n", n.ID, strings.Join(attrs, ", "))
	}

	buf.WriteString("\n")
	for _, e := range g.Edges {
		fmt.Fprintf(&buf, "  %d -- %d [len=%.3f];\n", e.From, e.To, e.Dist*10)
	}

	buf.WriteString("}\n")
	return buf.String()
}
