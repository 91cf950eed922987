package core

import "slices"

// Allocate issues an identifier. Released identifiers are reused lowest
// first; otherwise NextID is issued and advanced.
func (c *CounterState) Allocate() RecordID {
	if len(c.FreeIDs) > 0 {
		id := c.FreeIDs[0]
		c.FreeIDs = slices.Delete(c.FreeIDs, 0, 1)
		return id
	}
	id := c.NextID
	c.NextID++
	return id
}

// Release returns id to the free pool, keeping it sorted. It reports false
// if id was already free. NextID is never lowered.
func (c *CounterState) Release(id RecordID) bool {
	i, found := slices.BinarySearch(c.FreeIDs, id)
	if found {
		return false
	}
	c.FreeIDs = slices.Insert(c.FreeIDs, i, id)
	return true
}
