package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterPredicateBindsKeysAndValues(t *testing.T) {
	args := []interface{}{"query-vector"}

	predicate, args := filterPredicate(args, map[string]string{
		"type":    "research_paper",
		"disease": "Fabry Disease",
	})

	// Keys sort for deterministic statements; every key and value is a
	// bind parameter, never part of the SQL text.
	assert.Equal(t, " WHERE metadata->>$2 = $3 AND metadata->>$4 = $5", predicate)
	assert.Equal(t, []interface{}{
		"query-vector",
		"disease", "Fabry Disease",
		"type", "research_paper",
	}, args)
}

func TestFilterPredicateEmptyFilter(t *testing.T) {
	predicate, args := filterPredicate([]interface{}{"query-vector"}, nil)
	assert.Empty(t, predicate)
	assert.Len(t, args, 1)
}

func TestFilterPredicateKeepsHostileKeysOutOfSQL(t *testing.T) {
	predicate, args := filterPredicate(nil, map[string]string{
		"disease'; DROP TABLE disease_chunks; --": "x",
	})

	assert.Equal(t, " WHERE metadata->>$1 = $2", predicate)
	assert.Equal(t, []interface{}{"disease'; DROP TABLE disease_chunks; --", "x"}, args)
}
