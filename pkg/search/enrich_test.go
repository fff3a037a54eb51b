package search

import (
	"context"
	"testing"

	"github.com/soundprediction/schemagraph/pkg/cache"
	"github.com/soundprediction/schemagraph/pkg/driver"
	"github.com/soundprediction/schemagraph/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contextRow(kind, name, summary, attributes, extra string) driver.Record {
	rec := node(name, summary, attributes)
	rec["kind"] = kind
	rec["extra"] = extra
	return rec
}

func accountContextRows() []driver.Record {
	return []driver.Record{
		contextRow(contextKindTable, "bank.account", "Customer deposit accounts", `{"database": "bank", "partition_keys": ["region"]}`, ""),
		contextRow(contextKindColumn, "balance", "Current balance", `{"data_type": "decimal", "ordinal_position": 3}`, ""),
		contextRow(contextKindColumn, "account_id", "Account identifier", `{"data_type": "bigint", "is_primary_key": true, "is_nullable": false, "ordinal_position": 1}`, ""),
		contextRow(contextKindColumn, "region", "", `{"data_type": "string", "ordinal_position": 2}`, ""),
		contextRow(contextKindColumn, "notes", "", "", ""),
		contextRow(contextKindEntity, "Customer", "", "", ""),
		contextRow(contextKindRelated, "bank.transaction", "accounts have transactions", `{"join_condition": "account.id = transaction.account_id"}`, "JOIN"),
		contextRow(contextKindRelated, "bank.transaction", "accounts have transactions", `{"join_condition": "account.id = transaction.account_id"}`, "JOIN"),
		contextRow(contextKindDomain, "account", "", "", ""),
		contextRow(contextKindRule, "active only", "Exclude closed accounts", `{"expression": "status <> 'C'"}`, ""),
		contextRow(contextKindRule, "active only", "Exclude closed accounts", "", "status"),
		contextRow(contextKindCodeSet, "account_status", "status codes", `{"values": ["A", "C"]}`, "status"),
	}
}

func TestBuildTableContext(t *testing.T) {
	tc, found := buildTableContext("bank.account", accountContextRows())
	require.True(t, found)

	assert.Equal(t, "bank.account", tc.Table)
	assert.Equal(t, "bank", tc.Database)
	assert.Equal(t, "Customer deposit accounts", tc.Description)
	assert.Equal(t, "account", tc.Domain)
	assert.Equal(t, []string{"region"}, tc.PartitionKeys)
	assert.Equal(t, []string{"account_id", "region", "balance", "notes"}, tc.ColumnNames())
	assert.Equal(t, []string{"Customer"}, tc.Entities)

	id := tc.Columns[0]
	assert.True(t, id.IsPrimaryKey)
	assert.False(t, id.IsNullable)
	assert.Equal(t, "bigint", id.Type)
	assert.True(t, tc.Columns[1].IsPartition)
	assert.True(t, tc.Columns[2].IsNullable, "nullable unless stated")

	require.Len(t, tc.RelatedTables, 1)
	assert.Equal(t, types.RelatedTable{
		Table:         "bank.transaction",
		Relationship:  "JOIN",
		JoinCondition: "account.id = transaction.account_id",
	}, tc.RelatedTables[0])

	require.Len(t, tc.BusinessRules, 1)
	assert.Equal(t, "status <> 'C'", tc.BusinessRules[0].Expression)
	require.Len(t, tc.CodeSets, 1)
	assert.Equal(t, []string{"A", "C"}, tc.CodeSets[0].Values)
	assert.InDelta(t, 0.5, tc.DescribedRatio(), 1e-9)
}

func TestBuildTableContextMissingTable(t *testing.T) {
	_, found := buildTableContext("gone", []driver.Record{contextRow(contextKindColumn, "x", "", "", "")})
	assert.False(t, found)
}

func TestTargetDomain(t *testing.T) {
	items := []types.ScoredItem{
		{Name: "a"},
		{Name: "b", Attributes: map[string]any{"domain": "Payments"}},
		{Name: "c", Attributes: map[string]any{"domain": "risk"}},
	}
	d, inferred := targetDomain(items, types.Hints{Domain: " account "})
	assert.Equal(t, "account", d)
	assert.False(t, inferred)

	d, inferred = targetDomain(items, types.Hints{})
	assert.Equal(t, "Payments", d)
	assert.True(t, inferred)

	d, _ = targetDomain(nil, types.Hints{})
	assert.Empty(t, d)
}

func TestEnrichHydratesTables(t *testing.T) {
	store := newFakeStore().rows(tableContextQuery, accountContextRows()...)
	s := newTestSearcher(t, store, nil)

	items := []types.ScoredItem{
		{Name: "bank.account", Label: types.LabelTable, TextMatch: 0.5},
		{Name: "Customer", Label: types.LabelBusinessEntity, Summary: "holder", Attributes: map[string]any{"domain": "account", "owner": "crm"}},
		{Name: "bank.account", Label: types.LabelTable, TextMatch: 0.4},
	}
	out := s.enrich(context.Background(), items, types.Hints{ColumnHints: []string{"Balance", "missing"}}, "account")

	require.Len(t, out, 3)
	assert.Nil(t, items[0].Context, "input untouched")
	assert.Len(t, store.callsTo(tableContextQuery), 1, "one fetch per distinct table")

	table := out[0]
	require.NotNil(t, table.Context)
	assert.Equal(t, "account", table.Context.Domain)
	// description, codeset values, rule, partition key, half the columns described
	assert.InDelta(t, 0.2+0.2+0.25+0.15+0.1, table.DataQuality, 1e-9)
	assert.InDelta(t, 0.5, table.BusinessContext, 1e-9)
	assert.InDelta(t, 0.6, table.TextMatch, 1e-9)

	entity := out[1]
	assert.Nil(t, entity.Context)
	assert.InDelta(t, 0.2, entity.DataQuality, 1e-9)
	assert.InDelta(t, 0.7, entity.BusinessContext, 1e-9)

	assert.NotSame(t, out[0].Context, out[2].Context)
}

func TestEnrichSkipsContextWhenExcluded(t *testing.T) {
	store := newFakeStore().rows(tableContextQuery, accountContextRows()...)
	s := newTestSearcher(t, store, nil)
	off := false

	out := s.enrich(context.Background(), []types.ScoredItem{{Name: "bank.account", Label: types.LabelTable}},
		types.Hints{IncludeContext: &off}, "")
	require.Len(t, out, 1)
	assert.Nil(t, out[0].Context)
	assert.Empty(t, store.queries())
}

func TestEnrichKeepsItemsWhenFetchFails(t *testing.T) {
	store := newFakeStore().fail(tableContextQuery, errStoreDown)
	s := newTestSearcher(t, store, nil)

	items := []types.ScoredItem{{
		Name:       "bank.account",
		Label:      types.LabelTable,
		Summary:    "accounts",
		Attributes: map[string]any{"partition_keys": []any{"region"}},
	}}
	out := s.enrich(context.Background(), items, types.Hints{}, "")
	require.Len(t, out, 1)
	assert.Nil(t, out[0].Context)
	assert.InDelta(t, 0.35, out[0].DataQuality, 1e-9)
}

func TestTableContextCache(t *testing.T) {
	c, err := cache.Open(cache.Options{InMemory: true})
	require.NoError(t, err)
	defer c.Close()

	store := newFakeStore().rows(tableContextQuery, accountContextRows()...)
	s := newTestSearcher(t, store, nil)
	s.SetContextCache(c)

	first, err := s.TableContext(context.Background(), "bank.account")
	require.NoError(t, err)
	second, err := s.TableContext(context.Background(), "bank.account")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, store.callsTo(tableContextQuery), 1)

	missing, err := NewSearcher(newFakeStore(), nil, DefaultConfig()).TableContext(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
