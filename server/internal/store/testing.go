package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/transformerzoo/zoo-server/common/pkg/db/testdb"
)

// NewTest returns a new test store.
func NewTest(t *testing.T) (*S, func()) {
	db, tearDown := testdb.New(t)
	err := autoMigrate(db)
	assert.NoError(t, err)
	return New(db), tearDown
}
