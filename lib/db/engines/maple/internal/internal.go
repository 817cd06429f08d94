package internal

import (
	"slices"
	"sync"

	"github.com/ValentinKolb/dCommerce/lib/doc"
)

// --------------------------------------------------------------------------
// Collection Type (insertion-ordered documents)
// --------------------------------------------------------------------------

// Collection is an insertion-ordered sequence of documents guarded by its own lock.
// Stored documents are never modified in place: Replace swaps the whole document.
// This makes it safe to hand out the stored maps as read-only views.
type Collection struct {
	mu   sync.RWMutex
	docs []doc.Document
}

// NewCollection creates an empty collection, optionally pre-filled with docs (taken over, not copied)
func NewCollection(docs ...doc.Document) *Collection {
	return &Collection{docs: docs}
}

// indexOf returns the position of the first document with the given id or -1.
// The caller must hold the lock.
func (c *Collection) indexOf(id string) int {
	for i, d := range c.docs {
		if got, ok := d.ID(); ok && got == id {
			return i
		}
	}
	return -1
}

// Append adds d at the end of the collection.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *Collection) Append(d doc.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs = append(c.docs, d)
}

// Get returns the stored view of the first document with the given id.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *Collection) Get(id string) (doc.Document, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(id); i >= 0 {
		return c.docs[i], true
	}
	return nil, false
}

// Replace swaps the first document with the given id for d.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *Collection) Replace(id string, d doc.Document) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.docs[i] = d
	return true
}

// Delete removes the first document with the given id.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *Collection) Delete(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.docs = slices.Delete(c.docs, i, i+1)
	return true
}

// Len returns the number of documents.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.docs)
}

// Range calls fn for each document in order until fn returns false.
// The read lock is held for the whole iteration, so fn must not write to the collection.
func (c *Collection) Range(fn func(d doc.Document) bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, d := range c.docs {
		if !fn(d) {
			return
		}
	}
}

// Docs returns a copy of the document slice (the documents themselves are shared views).
func (c *Collection) Docs() []doc.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.docs)
}
