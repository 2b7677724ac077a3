package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sqlgate/internal/domain"
)

func TestClassify_Types(t *testing.T) {
	cases := []struct {
		sql  string
		want domain.QueryType
	}{
		{"SELECT * FROM orders", domain.QueryTypeRead},
		{"  select 1", domain.QueryTypeRead},
		{"SHOW TABLES", domain.QueryTypeRead},
		{"EXPLAIN SELECT * FROM t", domain.QueryTypeRead},
		{"INSERT INTO t (a) VALUES (1)", domain.QueryTypeWrite},
		{"UPDATE t SET x = 1", domain.QueryTypeWrite},
		{"DELETE FROM t WHERE id = 1", domain.QueryTypeWrite},
		{"MERGE INTO t USING s ON t.id = s.id", domain.QueryTypeWrite},
		{"CREATE TABLE t (id INT)", domain.QueryTypeDDL},
		{"ALTER TABLE t ADD COLUMN x INT", domain.QueryTypeDDL},
		{"DROP TABLE t", domain.QueryTypeDDL},
		{"TRUNCATE TABLE t", domain.QueryTypeDDL},
		{"CALL refresh_stats()", domain.QueryTypeProcedure},
		{"EXEC sp_who", domain.QueryTypeProcedure},
		{"EXEC(@stmt)", domain.QueryTypeProcedure},
	}

	for _, tc := range cases {
		q, err := Classify(tc.sql)
		require.NoError(t, err, tc.sql)
		assert.Equal(t, tc.want, q.Type, tc.sql)
		assert.Equal(t, tc.sql, q.RawText)
	}
}

func TestClassify_SkipsComments(t *testing.T) {
	q, err := Classify("-- report\n/* weekly */ SELECT 1")
	require.NoError(t, err)
	assert.Equal(t, domain.QueryTypeRead, q.Type)
}

func TestClassify_Unclassifiable(t *testing.T) {
	for _, sql := range []string{"", "   ", "GRANT ALL ON t TO bob", "VACUUM", "BEGIN"} {
		_, err := Classify(sql)
		require.Error(t, err, sql)
		var unclassifiable *domain.UnclassifiableQueryError
		assert.ErrorAs(t, err, &unclassifiable, sql)
	}
}

func TestExtractTables(t *testing.T) {
	cases := []struct {
		sql  string
		want []string
	}{
		{"SELECT * FROM orders", []string{"orders"}},
		{"SELECT * FROM orders o JOIN customers c ON o.cid = c.id", []string{"orders", "customers"}},
		{"INSERT INTO audit.events (id) VALUES (1)", []string{"audit.events"}},
		{"UPDATE inventory SET count = 0", []string{"inventory"}},
		{"TRUNCATE TABLE staging_rows", []string{"staging_rows"}},
		{"SELECT * FROM `orders`", []string{"orders"}},
		{"SELECT 1", nil},
	}

	for _, tc := range cases {
		got := ExtractTables(tc.sql)
		if tc.want == nil {
			assert.Empty(t, got, tc.sql)
			continue
		}
		assert.Equal(t, tc.want, got, tc.sql)
	}
}

func TestExtractTables_DeduplicatesCaseInsensitive(t *testing.T) {
	got := ExtractTables("SELECT * FROM Orders JOIN orders ON 1=1")
	assert.Len(t, got, 1)
}

func TestExtractTables_SubqueryIsNonFatal(t *testing.T) {
	// Subqueries are not resolved; extraction stays best-effort.
	got := ExtractTables("SELECT * FROM (SELECT * FROM inner_t) sub")
	assert.Contains(t, got, "inner_t")
}
