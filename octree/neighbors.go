package octree

import "github.com/samber/lo"

type neighborKey struct {
	cell CellID
	dir  Direction
}

// neighborCache memoizes resolved neighbors for one structure version of the tree.
type neighborCache struct {
	version uint64
	entries map[neighborKey]CellID
}

func (nc *neighborCache) get(version uint64, key neighborKey) (CellID, bool) {
	if nc.entries == nil || nc.version != version {
		nc.entries = map[neighborKey]CellID{}
		nc.version = version
		return NoCell, false
	}
	id, ok := nc.entries[key]
	return id, ok
}

func (nc *neighborCache) put(key neighborKey, id CellID) {
	nc.entries[key] = id
}

// Neighbor returns the cell adjacent to id in the given direction: a cell of the same depth if
// one exists, otherwise the coarser leaf covering that side. It returns false at the boundary of
// the tree, or for an unknown cell or invalid direction.
func (o *Octree) Neighbor(id CellID, dir Direction) (CellID, bool) {
	if !o.valid(id) || !dir.Valid() {
		return NoCell, false
	}
	key := neighborKey{cell: id, dir: dir}
	if n, ok := o.neighbors.get(o.version, key); ok {
		return n, n != NoCell
	}
	n := o.resolveNeighbor(id, dir)
	o.neighbors.put(key, n)
	return n, n != NoCell
}

// Neighbors returns the distinct cells adjacent to id over all 26 directions.
func (o *Octree) Neighbors(id CellID) []CellID {
	var found []CellID
	for _, dir := range AllDirections() {
		if n, ok := o.Neighbor(id, dir); ok {
			found = append(found, n)
		}
	}
	return lo.Uniq(found)
}

// resolveNeighbor climbs until every axis of dir can step inside a common ancestor, recording the
// mirrored octant at each level, then replays those octants downward as far as the tree goes.
func (o *Octree) resolveNeighbor(id CellID, dir Direction) CellID {
	steps := dir.components()
	var pending [3]bool
	for axis, s := range steps {
		pending[axis] = s != 0
	}

	var path []Octant
	cur := id
	for pending[axisX] || pending[axisY] || pending[axisZ] {
		c := &o.pool.cells[cur]
		if c.parent == NoCell {
			return NoCell
		}
		oct := c.octant
		for axis, s := range steps {
			if !pending[axis] {
				continue
			}
			if oct.sign(axis) == -s {
				oct = oct.withSign(axis, s)
				pending[axis] = false
			} else {
				oct = oct.withSign(axis, -s)
			}
		}
		path = append(path, oct)
		cur = c.parent
	}

	for len(path) > 0 && o.pool.cells[cur].hasChildren {
		oct := path[len(path)-1]
		path = path[:len(path)-1]
		cur = o.pool.cells[cur].children[oct]
	}
	return cur
}
