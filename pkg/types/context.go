package types

// ColumnInfo describes one column of a table.
type ColumnInfo struct {
	Name         string `json:"name" yaml:"name"`
	Type         string `json:"type,omitempty" yaml:"type,omitempty"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
	IsPrimaryKey bool   `json:"is_primary_key" yaml:"is_primary_key"`
	IsForeignKey bool   `json:"is_foreign_key" yaml:"is_foreign_key"`
	IsPartition  bool   `json:"is_partition" yaml:"is_partition"`
	IsNullable   bool   `json:"is_nullable" yaml:"is_nullable"`
}

// RelatedTable is a table reachable through a JOIN or FOREIGN_KEY edge.
type RelatedTable struct {
	Table         string `json:"table" yaml:"table"`
	Relationship  string `json:"relationship" yaml:"relationship"`
	JoinCondition string `json:"join_condition,omitempty" yaml:"join_condition,omitempty"`
}

// BusinessRule is a rule applicable to a table.
type BusinessRule struct {
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Expression  string `json:"expression,omitempty" yaml:"expression,omitempty"`
}

// CodeSet is a set of coded values used by a table's columns.
type CodeSet struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Values      []string `json:"values,omitempty" yaml:"values,omitempty"`
}

// TableContext is the hydrated view of one table.
type TableContext struct {
	Table         string         `json:"table" yaml:"table"`
	Database      string         `json:"database,omitempty" yaml:"database,omitempty"`
	Description   string         `json:"description,omitempty" yaml:"description,omitempty"`
	PartitionKeys []string       `json:"partition_keys,omitempty" yaml:"partition_keys,omitempty"`
	Columns       []ColumnInfo   `json:"columns,omitempty" yaml:"columns,omitempty"`
	Entities      []string       `json:"entities,omitempty" yaml:"entities,omitempty"`
	RelatedTables []RelatedTable `json:"related_tables,omitempty" yaml:"related_tables,omitempty"`
	Domain        string         `json:"domain,omitempty" yaml:"domain,omitempty"`
	BusinessRules []BusinessRule `json:"business_rules,omitempty" yaml:"business_rules,omitempty"`
	CodeSets      []CodeSet      `json:"code_sets,omitempty" yaml:"code_sets,omitempty"`
}

// ColumnNames returns the names of the table's columns in order.
func (tc *TableContext) ColumnNames() []string {
	names := make([]string, 0, len(tc.Columns))
	for _, c := range tc.Columns {
		names = append(names, c.Name)
	}
	return names
}

// DescribedRatio returns described_columns / total_columns, or 0 when the
// table has no columns.
func (tc *TableContext) DescribedRatio() float64 {
	if len(tc.Columns) == 0 {
		return 0
	}
	described := 0
	for _, c := range tc.Columns {
		if c.Description != "" {
			described++
		}
	}
	return float64(described) / float64(len(tc.Columns))
}

// DomainSummary describes a domain offered to the caller when nothing else
// matched.
type DomainSummary struct {
	Name           string   `json:"name" yaml:"name"`
	Summary        string   `json:"summary,omitempty" yaml:"summary,omitempty"`
	TableCount     int      `json:"table_count" yaml:"table_count"`
	EntityCount    int      `json:"entity_count" yaml:"entity_count"`
	SampleTables   []string `json:"sample_tables,omitempty" yaml:"sample_tables,omitempty"`
	SampleEntities []string `json:"sample_entities,omitempty" yaml:"sample_entities,omitempty"`
}
