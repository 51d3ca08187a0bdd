//go:build !sqlite

package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStoreSQLiteUnavailable(t *testing.T) {
	_, err := NewStore(BackendSQLite, "runs.db")
	assert.ErrorContains(t, err, "-tags sqlite")
}
