package criteria

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator produces criterion ids. Ids must be unique within a session.
type IDGenerator interface {
	Generate() string
}

// IDGeneratorFunc adapts a function to IDGenerator.
type IDGeneratorFunc func() string

func (f IDGeneratorFunc) Generate() string { return f() }

// UUIDv7Generator is the default generator. UUIDv7 ids sort by creation
// time, so criteria and history entries created later compare greater.
type UUIDv7Generator struct{}

func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator hands out a fixed list of ids in order and panics when a
// caller asks for more than it was given. Safe for concurrent use.
type FixedGenerator struct {
	ids  []string
	next atomic.Int64
}

func NewFixedGenerator(ids ...string) *FixedGenerator {
	return &FixedGenerator{ids: ids}
}

func (g *FixedGenerator) Generate() string {
	i := g.next.Add(1) - 1
	if i >= int64(len(g.ids)) {
		panic(fmt.Sprintf("criteria: FixedGenerator has only %d ids", len(g.ids)))
	}
	return g.ids[i]
}
