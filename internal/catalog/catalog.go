// Package catalog holds the static, versioned universe of practice problems,
// partitioned by topic. A Catalog is immutable once built: every accessor
// returns copies.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sync"
)

// Catalog is an indexed, read-only set of problems.
type Catalog struct {
	version  string
	problems []Problem
	byID     map[string]*Problem
	byTopic  map[Topic][]Problem
	topicIDs map[Topic]map[string]bool
}

// document is the on-disk catalog format.
type document struct {
	Version  string    `json:"version"`
	Problems []Problem `json:"problems"`
}

//go:embed data/problems.json
var builtinJSON []byte

var builtin = sync.OnceValue(func() *Catalog {
	c, err := Load(bytes.NewReader(builtinJSON))
	if err != nil {
		panic(fmt.Sprintf("built-in catalog is invalid: %v", err))
	}
	return c
})

// Default returns the built-in catalog shipped with the binary.
func Default() *Catalog {
	return builtin()
}

// Load reads a catalog document, validates it against the catalog schema
// and the structural rules, and builds the indices.
func Load(r io.Reader) (*Catalog, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if err := validateDocument(raw); err != nil {
		return nil, err
	}

	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return New(doc.Version, doc.Problems)
}

// New builds a catalog from problems already in memory.
func New(version string, problems []Problem) (*Catalog, error) {
	if err := validateProblems(version, problems); err != nil {
		return nil, err
	}
	return build(version, problems), nil
}

// build constructs the catalog and its indices. Catalog order is preserved
// within each topic.
func build(version string, problems []Problem) *Catalog {
	c := &Catalog{
		version:  version,
		problems: slices.Clone(problems),
		byID:     make(map[string]*Problem, len(problems)),
		byTopic:  make(map[Topic][]Problem),
		topicIDs: make(map[Topic]map[string]bool),
	}
	for i := range c.problems {
		p := &c.problems[i]
		c.byID[p.ID] = p
		c.byTopic[p.Topic] = append(c.byTopic[p.Topic], *p)
		if c.topicIDs[p.Topic] == nil {
			c.topicIDs[p.Topic] = make(map[string]bool)
		}
		c.topicIDs[p.Topic][p.ID] = true
	}
	return c
}

// Version returns the catalog's semantic version.
func (c *Catalog) Version() string {
	return c.version
}

// All returns every problem in catalog order.
func (c *Catalog) All() []Problem {
	return slices.Clone(c.problems)
}

// ByTopic returns the problems tagged with topic, in catalog order.
// An unknown or empty topic yields an empty slice.
func (c *Catalog) ByTopic(topic Topic) []Problem {
	return slices.Clone(c.byTopic[topic])
}

// Get returns the problem with the given ID.
func (c *Catalog) Get(id string) (Problem, bool) {
	p, ok := c.byID[id]
	if !ok {
		return Problem{}, false
	}
	return *p, true
}

// Contains reports whether id is a problem of topic.
func (c *Catalog) Contains(topic Topic, id string) bool {
	return c.topicIDs[topic][id]
}

// Count returns the number of problems in topic.
func (c *Catalog) Count(topic Topic) int {
	return len(c.byTopic[topic])
}

// Len returns the total number of problems.
func (c *Catalog) Len() int {
	return len(c.problems)
}

// Topics returns the topics that have at least one problem, in display order.
func (c *Catalog) Topics() []Topic {
	var out []Topic
	for _, t := range AllTopics() {
		if len(c.byTopic[t]) > 0 {
			out = append(out, t)
		}
	}
	return out
}
