package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractAddresses(t *testing.T) {
	t.Run("display name with angle brackets", func(t *testing.T) {
		addrs := ExtractAddresses("John Smith <john@example.com>")
		require.Len(t, addrs, 1)
		assert.Equal(t, "john@example.com", addrs[0].Email)
		assert.Equal(t, "John", addrs[0].FirstName)
		assert.Equal(t, "Smith", addrs[0].LastName)
	})

	t.Run("bare address has no name", func(t *testing.T) {
		addrs := ExtractAddresses("jane@example.org")
		require.Len(t, addrs, 1)
		assert.Equal(t, "jane@example.org", addrs[0].Email)
		assert.Empty(t, addrs[0].FirstName)
		assert.Empty(t, addrs[0].LastName)
	})

	t.Run("multiple recipients", func(t *testing.T) {
		addrs := ExtractAddresses("A B <a@example.com>, c@example.com")
		require.Len(t, addrs, 2)
		assert.Equal(t, "a@example.com", addrs[0].Email)
		assert.Equal(t, "c@example.com", addrs[1].Email)
	})

	t.Run("three part name keeps remainder as last name", func(t *testing.T) {
		addrs := ExtractAddresses("Ana Maria Silva <ana@example.com>")
		require.Len(t, addrs, 1)
		assert.Equal(t, "Ana", addrs[0].FirstName)
		assert.Equal(t, "Maria Silva", addrs[0].LastName)
	})

	t.Run("quoted display name", func(t *testing.T) {
		addrs := ExtractAddresses(`"Smith, John" <john@example.com>`)
		require.Len(t, addrs, 1)
		assert.Equal(t, "john@example.com", addrs[0].Email)
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Nil(t, ExtractAddresses(""))
		assert.Nil(t, ExtractAddresses("   "))
	})

	t.Run("no address at all", func(t *testing.T) {
		assert.Nil(t, ExtractAddresses("undisclosed recipients"))
	})
}
