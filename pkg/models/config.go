package models

type Config struct {
	Snowflake Snowflake `yaml:"snowflake"`
	Pipeline  Pipeline  `yaml:"pipeline"`
	Engine    Engine    `yaml:"engine"`
	Provision Provision `yaml:"provision"`
}

type Snowflake struct {
	Account   string `yaml:"account"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Role      string `yaml:"role"`
	Warehouse string `yaml:"warehouse"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
	Timeout   string `yaml:"timeout"` // Connection/statement timeout, e.g. "30m"
}

// Pipeline describes the source tables and the graph-ready artifacts
// derived from them.
type Pipeline struct {
	// Source transaction table and its columns
	TransactionTable string `yaml:"transaction_table"`
	SourceColumn     string `yaml:"source_column"`
	TargetColumn     string `yaml:"target_column"`
	AmountColumn     string `yaml:"amount_column"`

	// Source entity table carrying the node identifiers
	EntityTable  string `yaml:"entity_table"`
	EntityColumn string `yaml:"entity_column"`

	// Destinations, owned by the pipeline with replace semantics
	EdgeTable string `yaml:"edge_table"` // Aggregated weighted edges
	NodeView  string `yaml:"node_view"`  // Deduplicated node identifiers
}

// Engine configures the external graph analytics application.
type Engine struct {
	Application string `yaml:"application"`  // e.g. "NEO4J_GRAPH_ANALYTICS"
	ComputePool string `yaml:"compute_pool"` // Sizing tier, e.g. "CPU_X64_XS"
	Algorithm   string `yaml:"algorithm"`    // Default algorithm, e.g. "louvain"
	OutputTable string `yaml:"output_table"` // Community assignment destination
}

// Provision configures the grants applied to let the graph analytics
// application read the source tables and write results.
type Provision struct {
	AdminRole       string   `yaml:"admin_role"`       // Role used to apply grants, e.g. "ACCOUNTADMIN"
	ConsumerRole    string   `yaml:"consumer_role"`    // Role the application role is granted to
	ApplicationRole string   `yaml:"application_role"` // e.g. "NEO4J_GRAPH_ANALYTICS.APP_USER"
	ReadTables      []string `yaml:"read_tables"`      // Extra tables granted SELECT beyond the pipeline sources
	ResultsSchema   string   `yaml:"results_schema"`   // Schema the application may create tables in
}
