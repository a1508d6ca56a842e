package graph

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/nodestream/graphcc/config"
	"github.com/nodestream/graphcc/supernode"
)

// headerSize is the on-disk size of the seed + num_nodes + fail_factor
// header, each field a fixed 8 bytes.
const headerSize = 24

// WriteBinary drains ingest, then writes the header and every
// supernode in vertex-id order to path.
func (g *Graph) WriteBinary(path string) error {
	g.mu.Lock()
	if g.locked {
		g.mu.Unlock()
		return ErrUpdateLocked
	}
	g.locked = true
	g.mu.Unlock()
	defer g.unlock()

	if err := g.gutters.ForceFlush(); err != nil {
		return fmt.Errorf("graph: force flush: %w", err)
	}
	g.pool.Pause()
	defer g.pool.Unpause()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("graph: create %s: %w", path, err)
	}
	defer f.Close()

	header := make([]byte, headerSize)
	binary.LittleEndian.PutUint64(header[0:8], g.seed)
	binary.LittleEndian.PutUint64(header[8:16], g.numVerts)
	binary.LittleEndian.PutUint64(header[16:24], g.failFactor)
	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("graph: write header: %w", err)
	}

	for _, sn := range g.supernodes {
		if _, err := sn.WriteTo(f); err != nil {
			return fmt.Errorf("graph: write supernode %d: %w", sn.ID, err)
		}
	}

	if err := f.Sync(); err != nil {
		return fmt.Errorf("graph: sync %s: %w", path, err)
	}
	return nil
}

// LoadBinary constructs a graph from a file written by WriteBinary.
func LoadBinary(path string, cfg *config.Config) (*Graph, error) {
	if err := acquireSingleton(); err != nil {
		return nil, err
	}

	g, err := loadBinary(path, cfg)
	if err != nil {
		releaseSingleton()
		return nil, err
	}
	return g, nil
}

func loadBinary(path string, cfg *config.Config) (*Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("graph: open %s: %w", path, err)
	}
	defer f.Close()

	header := make([]byte, headerSize)
	if _, err := f.Read(header); err != nil {
		return nil, fmt.Errorf("graph: read header: %w", err)
	}
	seed := binary.LittleEndian.Uint64(header[0:8])
	numVerts := binary.LittleEndian.Uint64(header[8:16])
	failFactor := binary.LittleEndian.Uint64(header[16:24])

	numLevels := config.NumLevels(numVerts, int(failFactor))

	supernodes := make([]*supernode.Supernode, numVerts)
	for i := range supernodes {
		sn := supernode.New(uint64(i), seed, numLevels)
		if _, err := sn.ReadFrom(f); err != nil {
			return nil, fmt.Errorf("graph: %w: vertex %d: %v", ErrNoGoodBucket, i, err)
		}
		supernodes[i] = sn
	}

	return build(numVerts, seed, numLevels, failFactor, cfg, supernodes)
}
