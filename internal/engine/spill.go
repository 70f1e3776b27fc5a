package engine

// spillBlock records a neighbor cell's offset within its producer's
// spill rectangle.
type spillBlock struct {
	dr, dc uint32
}

// spillTable maps a neighbor address to the producer that currently
// claims it, implementing spec.md §4.9's "last producer wins, readable
// without re-running the reference parser" protocol. A neighbor's text
// is left as it is; when the neighbor has no text, Eval looks its
// producer up here on every read.
type spillTable struct {
	owners map[CellAddress]CellAddress
	blocks map[CellAddress]spillBlock
}

func newSpillTable() *spillTable {
	return &spillTable{
		owners: make(map[CellAddress]CellAddress),
		blocks: make(map[CellAddress]spillBlock),
	}
}

// neighborOf reports the producer currently claiming addr, if any.
func (t *spillTable) neighborOf(addr CellAddress) (CellAddress, spillBlock, bool) {
	producer, ok := t.owners[addr]
	if !ok {
		return CellAddress{}, spillBlock{}, false
	}
	return producer, t.blocks[addr], true
}

// register claims producer's spill rectangle over its neighboring
// cells. occupied reports whether a candidate neighbor currently holds
// non-empty text of its own (spec.md §4.9's actual conflict test,
// rather than a stale ownership check — a neighbor this table already
// claims for `producer` is never itself "occupied" until a caller
// writes real text there). On conflict, every claim producer
// previously held is released (so a shrinking/erroring producer's
// other neighbors read back as Empty on their next Eval) and a
// *SpillConflictError is returned without claiming any new cells.
func (t *spillTable) register(producer CellAddress, out *SpillOutputValue, occupied func(CellAddress) bool) *SpillConflictError {
	var claims []CellAddress
	var blocks []spillBlock
	for dr := uint32(0); dr < out.Height; dr++ {
		for dc := uint32(0); dc < out.Width; dc++ {
			if dr == 0 && dc == 0 {
				continue // the producer cell itself, not a neighbor
			}
			neighbor := CellAddress{
				Sheet: producer.Sheet,
				Row:   producer.Row + dr,
				Col:   producer.Col + dc,
			}
			if occupied(neighbor) {
				t.release(producer)
				return &SpillConflictError{Producer: producer, Blocker: neighbor}
			}
			claims = append(claims, neighbor)
			blocks = append(blocks, spillBlock{dr: dr, dc: dc})
		}
	}
	t.release(producer)
	for i, neighbor := range claims {
		t.owners[neighbor] = producer
		t.blocks[neighbor] = blocks[i]
	}
	return nil
}

// release drops every claim producer currently holds, used before
// re-registering on recalculation and when a producer cell is cleared.
func (t *spillTable) release(producer CellAddress) {
	for addr, owner := range t.owners {
		if owner == producer {
			delete(t.owners, addr)
			delete(t.blocks, addr)
		}
	}
}
