package export

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// SQLTable is the target table of WriteSQL and the stores.
const SQLTable = "knowledge_tree"

var sqlEscaper = strings.NewReplacer(`\`, `\\`, `'`, `''`)

// Escape doubles single quotes and escapes backslashes.
func Escape(s string) string {
	return sqlEscaper.Replace(s)
}

func quote(s string) string {
	return "'" + Escape(s) + "'"
}

func nullable(s string) string {
	if s == "" {
		return "NULL"
	}
	return quote(s)
}

// WriteSQL emits a DELETE then an INSERT for every record. Running the
// file twice leaves the table in the same state.
func WriteSQL(w io.Writer, records []Record, now time.Time) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "-- knowledge tree import\n-- records: %d\n-- generated: %s\n\n", len(records), now.Format(time.RFC3339))

	for _, r := range records {
		fmt.Fprintf(bw, "DELETE FROM %s WHERE id = %s;\n", SQLTable, quote(r.ID))
		values := []string{
			quote(r.ID),
			quote(r.Code),
			quote(r.Title),
			nullable(r.Content),
			nullable(r.ParentID),
			quote(r.SubjectCode),
			strconv.Itoa(r.Level),
			strconv.Itoa(r.Importance),
			quote(r.Type),
			nullable(r.PointType),
			nullable(r.DrugName),
		}
		fmt.Fprintf(bw, "INSERT INTO %s (id, code, title, content, parent_id, subject_code, level, importance, node_type, point_type, drug_name) VALUES (%s);\n",
			SQLTable, strings.Join(values, ", "))
	}
	return bw.Flush()
}
