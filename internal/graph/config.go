package graph

import (
	"encoding/json"
	"fmt"
	"strings"

	"graphdrop/internal/snowflake"
	"graphdrop/pkg/errors"
)

// Orientation controls how stored edges are projected into the graph.
const (
	OrientationNatural    = "NATURAL"
	OrientationReverse    = "REVERSE"
	OrientationUndirected = "UNDIRECTED"
)

// Algorithm describes one entry of the engine's algorithm catalog.
type Algorithm struct {
	Name      string // user-facing name
	Procedure string // procedure name exposed by the application
	Weighted  bool   // supports an edge weight property
}

// Algorithms is the catalog of graph algorithms the engine exposes.
var Algorithms = map[string]Algorithm{
	"louvain":  {Name: "louvain", Procedure: "louvain", Weighted: true},
	"pagerank": {Name: "pagerank", Procedure: "page_rank", Weighted: true},
	"wcc":      {Name: "wcc", Procedure: "wcc", Weighted: false},
}

// LookupAlgorithm resolves a user-supplied algorithm name.
func LookupAlgorithm(name string) (Algorithm, error) {
	algo, ok := Algorithms[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		names := make([]string, 0, len(Algorithms))
		for n := range Algorithms {
			names = append(names, n)
		}
		return Algorithm{}, errors.New(errors.ErrCodeUnknownAlgorithm,
			fmt.Sprintf("Unknown algorithm %q", name)).
			WithSuggestions("Available algorithms: " + strings.Join(names, ", "))
	}
	return algo, nil
}

// RelationshipSpec projects one edge table between two declared node tables.
type RelationshipSpec struct {
	SourceTable string `json:"sourceTable"`
	TargetTable string `json:"targetTable"`
	Orientation string `json:"orientation,omitempty"`
}

// ProjectSpec declares which tables form the vertex and edge sets.
type ProjectSpec struct {
	NodeTables         []string                    `json:"nodeTables"`
	RelationshipTables map[string]RelationshipSpec `json:"relationshipTables"`
}

// ComputeSpec carries algorithm parameters. ConsecutiveIDs asks the engine
// to renumber node identifiers into a dense range before computation.
type ComputeSpec struct {
	ConsecutiveIDs             bool    `json:"consecutiveIds,omitempty"`
	RelationshipWeightProperty string  `json:"relationshipWeightProperty,omitempty"`
	DampingFactor              float64 `json:"dampingFactor,omitempty"`
	MaxIterations              int     `json:"maxIterations,omitempty"`
}

// WriteSpec names the node-labeled output and its destination table. The
// destination is created with replace semantics by the engine.
type WriteSpec struct {
	NodeLabel   string `json:"nodeLabel"`
	OutputTable string `json:"outputTable"`
}

// JobSpec is the full configuration handed to the external engine: what to
// project, what to compute, and where to write.
type JobSpec struct {
	Algorithm   string      `json:"-"`
	ComputePool string      `json:"-"`
	Project     ProjectSpec `json:"project"`
	Compute     ComputeSpec `json:"compute"`
	Write       []WriteSpec `json:"write"`
}

// Validate fails fast on a malformed job before anything is sent to the
// engine, so an expensive computation never starts on a configuration that
// cannot succeed.
func (j *JobSpec) Validate() error {
	if _, err := LookupAlgorithm(j.Algorithm); err != nil {
		return err
	}
	if j.ComputePool == "" {
		return errors.New(errors.ErrCodeRequiredField, "Compute pool is required").
			WithSuggestions("Set engine.compute_pool, e.g. CPU_X64_XS")
	}

	if len(j.Project.NodeTables) == 0 {
		return errors.New(errors.ErrCodeEngineConfig, "At least one node table must be projected")
	}
	declared := make(map[string]bool, len(j.Project.NodeTables))
	for _, table := range j.Project.NodeTables {
		if err := snowflake.ValidIdentifier(table); err != nil {
			return errors.Wrap(err, errors.ErrCodeEngineConfig,
				fmt.Sprintf("Invalid node table %q", table))
		}
		declared[table] = true
	}

	if len(j.Project.RelationshipTables) == 0 {
		return errors.New(errors.ErrCodeEngineConfig, "At least one relationship table must be projected")
	}
	for table, rel := range j.Project.RelationshipTables {
		if err := snowflake.ValidIdentifier(table); err != nil {
			return errors.Wrap(err, errors.ErrCodeEngineConfig,
				fmt.Sprintf("Invalid relationship table %q", table))
		}
		if !declared[rel.SourceTable] {
			return errors.New(errors.ErrCodeEngineConfig,
				fmt.Sprintf("Relationship table %s references undeclared source table %q", table, rel.SourceTable))
		}
		if !declared[rel.TargetTable] {
			return errors.New(errors.ErrCodeEngineConfig,
				fmt.Sprintf("Relationship table %s references undeclared target table %q", table, rel.TargetTable))
		}
		switch rel.Orientation {
		case "", OrientationNatural, OrientationReverse, OrientationUndirected:
		default:
			return errors.New(errors.ErrCodeEngineConfig,
				fmt.Sprintf("Invalid orientation %q for relationship table %s", rel.Orientation, table))
		}
	}

	if len(j.Write) == 0 {
		return errors.New(errors.ErrCodeEngineConfig, "A write destination is required")
	}
	for _, w := range j.Write {
		if w.NodeLabel == "" {
			return errors.New(errors.ErrCodeRequiredField, "Write nodeLabel is required")
		}
		if err := snowflake.ValidIdentifier(w.OutputTable); err != nil {
			return errors.Wrap(err, errors.ErrCodeEngineConfig,
				fmt.Sprintf("Invalid output table %q", w.OutputTable))
		}
	}

	return nil
}

// ConfigJSON serializes the project/compute/write configuration object.
func (j *JobSpec) ConfigJSON() (string, error) {
	data, err := json.Marshal(j)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrCodeEngineConfig, "Failed to serialize job configuration")
	}
	return string(data), nil
}
