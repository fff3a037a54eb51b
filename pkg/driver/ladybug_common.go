package driver

import (
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// LadybugSchemaQueries creates the node and relationship tables of the schema
// graph. Ladybug requires an explicit schema; every node table carries the
// same columns so label-agnostic projections work unchanged.
var LadybugSchemaQueries = buildLadybugSchema()

var ladybugNodeTables = []string{"Table", "Column", "BusinessEntity", "QueryPattern", "Domain", "BusinessRule", "CodeSet"}

var ladybugRelTables = []struct {
	name  string
	pairs [][2]string
}{
	{"HAS_COLUMN", [][2]string{{"Table", "Column"}}},
	{"JOIN", [][2]string{{"Table", "Table"}}},
	{"FOREIGN_KEY", [][2]string{{"Table", "Table"}, {"Column", "Column"}}},
	{"ENTITY_MAPPING", [][2]string{{"BusinessEntity", "Table"}, {"BusinessEntity", "Column"}}},
	{"SYNONYM", [][2]string{{"BusinessEntity", "BusinessEntity"}}},
	{"BELONGS_TO_DOMAIN", [][2]string{{"Table", "Domain"}, {"BusinessEntity", "Domain"}}},
	{"CONTAINS_ENTITY", [][2]string{{"Domain", "BusinessEntity"}}},
	{"APPLIES_TO", [][2]string{{"BusinessRule", "Table"}, {"BusinessRule", "Column"}}},
	{"HAS_RULE", [][2]string{{"Table", "BusinessRule"}, {"BusinessEntity", "BusinessRule"}}},
	{"HAS_CODESET", [][2]string{{"Column", "CodeSet"}}},
	{"USES_TABLE", [][2]string{{"QueryPattern", "Table"}}},
}

func buildLadybugSchema() string {
	var sb strings.Builder
	for _, table := range ladybugNodeTables {
		sb.WriteString("CREATE NODE TABLE IF NOT EXISTS `" + table + "` (\n")
		sb.WriteString("    uuid STRING PRIMARY KEY,\n")
		sb.WriteString("    name STRING,\n")
		sb.WriteString("    group_id STRING,\n")
		sb.WriteString("    summary STRING,\n")
		sb.WriteString("    attributes STRING,\n")
		sb.WriteString("    embedding FLOAT[]\n")
		sb.WriteString(");\n")
	}
	for _, rel := range ladybugRelTables {
		sb.WriteString("CREATE REL TABLE IF NOT EXISTS " + rel.name + "(\n")
		for _, pair := range rel.pairs {
			sb.WriteString("    FROM `" + pair[0] + "` TO `" + pair[1] + "`,\n")
		}
		sb.WriteString("    uuid STRING,\n")
		sb.WriteString("    fact STRING,\n")
		sb.WriteString("    attributes STRING\n")
		sb.WriteString(");\n")
	}
	return sb.String()
}

var (
	labelsIndexPattern = regexp.MustCompile(`labels\((\w+)\)\[0\]`)
	typeFuncPattern    = regexp.MustCompile(`\btype\((\w+)\)`)
	toLowerPattern     = regexp.MustCompile(`\btoLower\(`)
	nodeLabelPattern   = regexp.MustCompile(`:(` + strings.Join(ladybugNodeTables, "|") + `)\b`)
)

// TranslateCypher rewrites the Neo4j flavored constructs used by the search
// queries into the Ladybug dialect.
func TranslateCypher(query string) string {
	query = labelsIndexPattern.ReplaceAllString(query, "label($1)")
	query = typeFuncPattern.ReplaceAllString(query, "label($1)")
	query = toLowerPattern.ReplaceAllString(query, "lower(")
	query = nodeLabelPattern.ReplaceAllString(query, ":`$1`")
	return query
}

// isLockError checks if an error is due to a file lock
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "lock") ||
		strings.Contains(errStr, "in use") ||
		strings.Contains(errStr, "busy")
}

// copyDir recursively copies a directory from src to dst
func copyDir(src, dst string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}

	if !srcInfo.IsDir() {
		return copyFile(src, dst)
	}

	if err := os.MkdirAll(dst, srcInfo.Mode()); err != nil {
		return err
	}

	entries, err := os.ReadDir(src)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyDir(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

// copyFile copies a single file from src to dst
func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return err
	}

	srcInfo, err := os.Stat(src)
	if err != nil {
		return err
	}
	return os.Chmod(dst, srcInfo.Mode())
}
