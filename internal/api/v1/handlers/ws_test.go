package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"taskboard/internal/docstore"
)

func TestStreamScope(t *testing.T) {
	filters, scoped := streamScope(docstore.Tasks, false, "emp-1")
	assert.True(t, scoped)
	assert.Equal(t, []docstore.Filter{docstore.Where("assigned_to", "emp-1")}, filters)

	_, scoped = streamScope(docstore.Tasks, true, "emp-1")
	assert.False(t, scoped)

	_, scoped = streamScope(docstore.Projects, false, "emp-1")
	assert.False(t, scoped)
}
