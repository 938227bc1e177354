package repository

import (
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
)

func TestNewSagaJournal(t *testing.T) {
	pool := &pgxpool.Pool{}
	journal := NewSagaJournal(pool)
	assert.NotNil(t, journal)
}
