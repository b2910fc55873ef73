package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDeduper_DuplicateWithinWindow(t *testing.T) {
	d := NewDeduper()
	now := time.Now()
	assert.False(t, d.IsDuplicate("t1", "d1", 5, now))
	assert.True(t, d.IsDuplicate("t1", "d1", 5, now.Add(30*time.Second)))
}

func TestDeduper_AllowsAfterWindow(t *testing.T) {
	d := NewDeduper()
	now := time.Now()
	assert.False(t, d.IsDuplicate("t1", "d1", 5, now))
	assert.False(t, d.IsDuplicate("t1", "d1", 5, now.Add(dedupWindow+time.Second)))
}

func TestDeduper_DifferentSeqNotDuplicate(t *testing.T) {
	d := NewDeduper()
	now := time.Now()
	assert.False(t, d.IsDuplicate("t1", "d1", 5, now))
	assert.False(t, d.IsDuplicate("t1", "d1", 6, now.Add(time.Second)))
}
