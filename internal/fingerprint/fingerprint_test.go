package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHash_WhitespaceAndCaseInsensitive(t *testing.T) {
	variants := []string{
		"SELECT * FROM orders WHERE id = 5",
		"select  *  from  orders  where id = 5",
		"SELECT *\n\tFROM orders\n\tWHERE id = 5",
		"  Select * From Orders Where Id = 5  ",
	}

	want := Hash(variants[0])
	for _, v := range variants[1:] {
		assert.Equal(t, want, Hash(v), v)
	}
}

func TestHash_LiteralsAreSignificant(t *testing.T) {
	// Two queries differing only in a literal are distinct entries.
	a := Hash("SELECT * FROM orders WHERE id = 5")
	b := Hash("SELECT * FROM orders WHERE id = 6")
	assert.NotEqual(t, a, b)
}

func TestHash_IsHexSHA256(t *testing.T) {
	h := Hash("SELECT 1")
	assert.Len(t, h, 64)
	assert.Regexp(t, "^[0-9a-f]{64}$", h)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "select * from t", Normalize("  SELECT\t*\nFROM   t "))
}

func TestNormalizeLiterals(t *testing.T) {
	cases := []struct{ in, want string }{
		{"SELECT * FROM users WHERE name = 'John' AND age = 25", "SELECT * FROM users WHERE name = ? AND age = ?"},
		{"UPDATE products SET price = 99.99 WHERE category = \"electronics\"", "UPDATE products SET price = ? WHERE category = ?"},
		{"SELECT * FROM t", "SELECT * FROM t"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeLiterals(tc.in), tc.in)
	}

	// Literal-insensitive matching via pre-normalization.
	a := Hash(NormalizeLiterals("SELECT * FROM orders WHERE id = 5"))
	b := Hash(NormalizeLiterals("SELECT * FROM orders WHERE id = 6"))
	assert.Equal(t, a, b)
}
