// SPDX-License-Identifier: Apache-2.0

package bulkload

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lib/pq"

	"github.com/tableload/tableload/pkg/record"
)

// levelIDPattern matches the level-index columns a temp table carries for
// a nested table (§4.E: "S be the subset of columns ... matching the
// level-index pattern").
var levelIDPattern = regexp.MustCompile(`^_sdc_level_[0-9]+_id$`)

// LevelIDColumns returns the subset of columns matching the level-index
// naming pattern, in their given order.
func LevelIDColumns(columns []string) []string {
	var out []string
	for _, c := range columns {
		if levelIDPattern.MatchString(c) {
			out = append(out, c)
		}
	}
	return out
}

// buildMergeSQL renders the three-statement merge of §4.E.merge: a
// DISTINCT ON CTE selecting target rows whose key matches a staged row at
// least as new, a DELETE of those rows, and a dedup INSERT of the staged
// data, followed by a DROP of the temp table.
func buildMergeSQL(target, temp string, keyColumns, levelColumns []string) string {
	qTarget := pq.QuoteIdentifier(target)
	qTemp := pq.QuoteIdentifier(temp)
	qSeq := pq.QuoteIdentifier(record.SequenceColumn)

	keyUnqualified := quoteList(keyColumns)
	keySelect := qualifiedList("temp", keyColumns)
	keyJoin := qualifiedEqualJoin("temp", "target", keyColumns)
	keyDeleteJoin := qualifiedEqualJoin("target", "pks", keyColumns)

	dedupColumns := append(append([]string{}, keyColumns...), levelColumns...)
	dedupUnqualified := quoteList(dedupColumns)

	firstKey := pq.QuoteIdentifier(keyColumns[0])

	return fmt.Sprintf(`WITH pks AS (
    SELECT DISTINCT ON (%[1]s) %[2]s
    FROM %[3]s AS temp
    JOIN %[4]s AS target ON %[5]s
    WHERE temp.%[6]s >= target.%[6]s
    ORDER BY %[1]s, temp.%[6]s DESC
)
DELETE FROM %[4]s AS target USING pks WHERE %[7]s;

INSERT INTO %[4]s
SELECT DISTINCT ON (%[8]s) temp.*
FROM %[3]s AS temp
LEFT JOIN %[4]s AS target ON %[5]s
WHERE target.%[9]s IS NULL
ORDER BY %[8]s, temp.%[6]s DESC;

DROP TABLE %[3]s;
`, keyUnqualified, keySelect, qTemp, qTarget, keyJoin, qSeq, keyDeleteJoin, dedupUnqualified, firstKey)
}

func quoteList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pq.QuoteIdentifier(c)
	}
	return strings.Join(quoted, ", ")
}

func qualifiedList(alias string, cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = fmt.Sprintf("%s.%s", alias, pq.QuoteIdentifier(c))
	}
	return strings.Join(quoted, ", ")
}

func qualifiedEqualJoin(leftAlias, rightAlias string, cols []string) string {
	conds := make([]string, len(cols))
	for i, c := range cols {
		q := pq.QuoteIdentifier(c)
		conds[i] = fmt.Sprintf("%s.%s = %s.%s", leftAlias, q, rightAlias, q)
	}
	return strings.Join(conds, " AND ")
}
