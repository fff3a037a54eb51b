package search

import (
	"fmt"

	"github.com/soundprediction/schemagraph/pkg/types"
)

// Queries project scalar properties only, so the same text runs on Neo4j and,
// after driver.TranslateCypher, on Ladybug. Every parameter passed to a query
// must appear in it: Ladybug rejects unused parameters.

const groupFilter = `($group_id = '' OR %[1]s.group_id = $group_id)`

func inGroup(v string) string {
	return fmt.Sprintf(groupFilter, v)
}

// Level 1: business entities whose name or serialized attributes contain the term.
var exactEntityQuery = `
MATCH (n:BusinessEntity)
WHERE ` + inGroup("n") + `
  AND (toLower(n.name) CONTAINS toLower($term) OR toLower(coalesce(n.attributes, '')) CONTAINS toLower($term))
  AND ($database = '' OR toLower(n.name) CONTAINS toLower($database) OR toLower(coalesce(n.attributes, '')) CONTAINS toLower($database))
  AND ($domain = '' OR toLower(coalesce(n.attributes, '')) CONTAINS toLower($domain))
RETURN n.uuid AS uuid, n.name AS name, n.summary AS summary, n.attributes AS attributes
ORDER BY n.name
LIMIT 5`

// Level 1: tables whose name contains the term.
var exactTableQuery = `
MATCH (n:Table)
WHERE ` + inGroup("n") + `
  AND toLower(n.name) CONTAINS toLower($term)
  AND ($database = '' OR toLower(n.name) CONTAINS toLower($database) OR toLower(coalesce(n.attributes, '')) CONTAINS toLower($database))
  AND ($domain = '' OR toLower(coalesce(n.attributes, '')) CONTAINS toLower($domain))
RETURN n.uuid AS uuid, n.name AS name, n.summary AS summary, n.attributes AS attributes
ORDER BY n.name
LIMIT 5`

// Level 2: outgoing edges of a business entity seed.
var entityFirstHopQuery = `
MATCH (s:BusinessEntity)-[r]->(n)
WHERE s.name = $name AND ` + inGroup("s") + `
RETURN s.uuid AS origin_uuid, n.uuid AS uuid, n.name AS name, labels(n)[0] AS label,
       n.summary AS summary, n.attributes AS attributes, type(r) AS edge_type
LIMIT 50`

// Level 2: outgoing edges of a first-hop node, never returning to the origin.
var secondHopQuery = `
MATCH (s)-[r]->(n)
WHERE s.uuid = $uuid AND n.uuid <> $origin_uuid
RETURN n.uuid AS uuid, n.name AS name, labels(n)[0] AS label,
       n.summary AS summary, n.attributes AS attributes, type(r) AS edge_type
LIMIT 25`

// Level 2: join, foreign key and domain neighbors of a table seed.
var tableNeighborQuery = `
MATCH (s:Table)-[r:JOIN|FOREIGN_KEY|BELONGS_TO_DOMAIN]-(n)
WHERE s.name = $name AND ` + inGroup("s") + `
RETURN n.uuid AS uuid, n.name AS name, labels(n)[0] AS label,
       n.summary AS summary, n.attributes AS attributes, type(r) AS edge_type
LIMIT 50`

// Level 3: query patterns tagged with an intent.
var patternByIntentQuery = `
MATCH (n:QueryPattern)
WHERE ` + inGroup("n") + `
  AND toLower(coalesce(n.attributes, '')) CONTAINS toLower($intent)
OPTIONAL MATCH (n)-[:USES_TABLE]->(t:Table)
RETURN n.uuid AS uuid, n.name AS name, n.summary AS summary, n.attributes AS attributes, collect(t.name) AS tables
LIMIT 10`

// Level 3: query patterns whose name or summary mention the query.
var patternByTextQuery = `
MATCH (n:QueryPattern)
WHERE ` + inGroup("n") + `
  AND (toLower(n.name) CONTAINS toLower($query) OR toLower(coalesce(n.summary, '')) CONTAINS toLower($query))
OPTIONAL MATCH (n)-[:USES_TABLE]->(t:Table)
RETURN n.uuid AS uuid, n.name AS name, n.summary AS summary, n.attributes AS attributes, collect(t.name) AS tables
LIMIT 10`

// vectorSimilarityQuery scores embedded nodes of one label inside the store
// with similarity, an expression over n.embedding and $embedding, and returns
// the topK best at or above $threshold.
func vectorSimilarityQuery(label types.Label, similarity string, dims, topK int) string {
	return fmt.Sprintf(`
MATCH (n:%s)
WHERE `+inGroup("n")+`
  AND n.embedding IS NOT NULL
  AND size(n.embedding) = %d
  AND ($database = '' OR toLower(n.name) CONTAINS toLower($database) OR toLower(coalesce(n.attributes, '')) CONTAINS toLower($database))
WITH n, %s AS score
WHERE score >= $threshold
RETURN n.uuid AS uuid, n.name AS name, n.summary AS summary, n.attributes AS attributes, score
ORDER BY score DESC, name
LIMIT %d`, label, dims, similarity, topK)
}

// vectorCandidateQuery fetches embedded nodes of one label for stores without
// a cosine function. Similarity is computed in process over at most scanLimit
// rows.
func vectorCandidateQuery(label types.Label, scanLimit int) string {
	return fmt.Sprintf(`
MATCH (n:%s)
WHERE `+inGroup("n")+`
  AND n.embedding IS NOT NULL
  AND ($database = '' OR toLower(n.name) CONTAINS toLower($database) OR toLower(coalesce(n.attributes, '')) CONTAINS toLower($database))
RETURN n.uuid AS uuid, n.name AS name, n.summary AS summary, n.attributes AS attributes, n.embedding AS embedding
LIMIT %d`, label, scanLimit)
}

// Table context: one round trip, one row per fact, discriminated by kind.
const (
	contextKindTable   = "table"
	contextKindColumn  = "column"
	contextKindEntity  = "entity"
	contextKindRelated = "related"
	contextKindDomain  = "domain"
	contextKindRule    = "rule"
	contextKindCodeSet = "codeset"
)

var tableContextQuery = `
MATCH (t:Table)
WHERE t.name = $name AND ` + inGroup("t") + `
RETURN 'table' AS kind, t.name AS name, t.summary AS summary, t.attributes AS attributes, '' AS extra
UNION ALL
MATCH (t:Table)-[:HAS_COLUMN]->(c:Column)
WHERE t.name = $name AND ` + inGroup("t") + `
RETURN 'column' AS kind, c.name AS name, c.summary AS summary, c.attributes AS attributes, '' AS extra
UNION ALL
MATCH (e:BusinessEntity)-[:ENTITY_MAPPING]->(t:Table)
WHERE t.name = $name AND ` + inGroup("t") + `
RETURN 'entity' AS kind, e.name AS name, e.summary AS summary, e.attributes AS attributes, '' AS extra
UNION ALL
MATCH (t:Table)-[r:JOIN|FOREIGN_KEY]-(o:Table)
WHERE t.name = $name AND ` + inGroup("t") + `
RETURN 'related' AS kind, o.name AS name, r.fact AS summary, r.attributes AS attributes, type(r) AS extra
UNION ALL
MATCH (t:Table)-[:BELONGS_TO_DOMAIN]->(d:Domain)
WHERE t.name = $name AND ` + inGroup("t") + `
RETURN 'domain' AS kind, d.name AS name, d.summary AS summary, d.attributes AS attributes, '' AS extra
UNION ALL
MATCH (b:BusinessRule)-[:APPLIES_TO]->(t:Table)
WHERE t.name = $name AND ` + inGroup("t") + `
RETURN 'rule' AS kind, b.name AS name, b.summary AS summary, b.attributes AS attributes, '' AS extra
UNION ALL
MATCH (t:Table)-[:HAS_RULE]->(b:BusinessRule)
WHERE t.name = $name AND ` + inGroup("t") + `
RETURN 'rule' AS kind, b.name AS name, b.summary AS summary, b.attributes AS attributes, '' AS extra
UNION ALL
MATCH (t:Table)-[:HAS_COLUMN]->(c:Column)<-[:APPLIES_TO]-(b:BusinessRule)
WHERE t.name = $name AND ` + inGroup("t") + `
RETURN 'rule' AS kind, b.name AS name, b.summary AS summary, b.attributes AS attributes, c.name AS extra
UNION ALL
MATCH (t:Table)-[:HAS_COLUMN]->(c:Column)-[:HAS_CODESET]->(cs:CodeSet)
WHERE t.name = $name AND ` + inGroup("t") + `
RETURN 'codeset' AS kind, cs.name AS name, cs.summary AS summary, cs.attributes AS attributes, c.name AS extra`

// Fallback: domains ordered by how many tables they hold.
var domainDiscoveryQuery = `
MATCH (d:Domain)
WHERE ` + inGroup("d") + `
OPTIONAL MATCH (t:Table)-[:BELONGS_TO_DOMAIN]->(d)
WITH d, collect(DISTINCT t.name) AS tables
OPTIONAL MATCH (d)-[:CONTAINS_ENTITY]->(e:BusinessEntity)
WITH d, tables, collect(DISTINCT e.name) AS entities
RETURN d.name AS name, d.summary AS summary, tables AS tables, entities AS entities
ORDER BY size(tables) DESC, name
LIMIT 10`
