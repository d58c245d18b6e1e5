package entity

// BlockType tags one atomic unit of a recognition result.
type BlockType string

const (
	BlockPage        BlockType = "PAGE"
	BlockLine        BlockType = "LINE"
	BlockWord        BlockType = "WORD"
	BlockKeyValueSet BlockType = "KEY_VALUE_SET"
	BlockSelection   BlockType = "SELECTION_ELEMENT"
)

// RelationType is the kind of a directed edge between blocks.
type RelationType string

const (
	RelationChild RelationType = "CHILD"
	RelationValue RelationType = "VALUE"
)

// Entity roles carried by KEY_VALUE_SET blocks.
const (
	RoleKey   = "KEY"
	RoleValue = "VALUE"
)

// Relationship is one typed edge listing child block ids in order.
type Relationship struct {
	Type RelationType `json:"type"`
	IDs  []string     `json:"ids"`
}

// Block is one node of the recognition result graph. Edges reference
// other blocks by id only.
type Block struct {
	ID            string         `json:"id"`
	Type          BlockType      `json:"type"`
	Text          string         `json:"text,omitempty"`
	Confidence    *float64       `json:"confidence,omitempty"`
	EntityTypes   []string       `json:"entity_types,omitempty"`
	Relationships []Relationship `json:"relationships,omitempty"`
	Page          int            `json:"page,omitempty"`
}

// HasRole reports whether the block carries the given entity role.
func (b *Block) HasRole(role string) bool {
	for _, r := range b.EntityTypes {
		if r == role {
			return true
		}
	}
	return false
}

// EdgeIDs returns the ids of every edge of the given type, in edge order.
func (b *Block) EdgeIDs(t RelationType) []string {
	var ids []string
	for _, rel := range b.Relationships {
		if rel.Type == t {
			ids = append(ids, rel.IDs...)
		}
	}
	return ids
}

// BlockSet is an arena of blocks addressed by id. Iteration follows
// insertion order; a later block with a repeated id replaces the earlier
// one in place.
type BlockSet struct {
	order []string
	byID  map[string]*Block
}

// NewBlockSet builds an arena from blocks in result order.
func NewBlockSet(blocks []Block) *BlockSet {
	bs := &BlockSet{byID: make(map[string]*Block, len(blocks))}
	for i := range blocks {
		bs.Add(blocks[i])
	}
	return bs
}

// Add inserts a block. Blocks without an id are ignored.
func (bs *BlockSet) Add(b Block) {
	if b.ID == "" {
		return
	}
	if bs.byID == nil {
		bs.byID = make(map[string]*Block)
	}
	if _, seen := bs.byID[b.ID]; !seen {
		bs.order = append(bs.order, b.ID)
	}
	blk := b
	bs.byID[b.ID] = &blk
}

// Get looks up a block; ok is false for dangling ids.
func (bs *BlockSet) Get(id string) (*Block, bool) {
	if bs == nil {
		return nil, false
	}
	b, ok := bs.byID[id]
	return b, ok
}

// Len returns the number of distinct blocks.
func (bs *BlockSet) Len() int {
	if bs == nil {
		return 0
	}
	return len(bs.order)
}

// Each visits blocks in insertion order.
func (bs *BlockSet) Each(fn func(*Block)) {
	if bs == nil {
		return
	}
	for _, id := range bs.order {
		fn(bs.byID[id])
	}
}

// Blocks returns a copy of the blocks in insertion order.
func (bs *BlockSet) Blocks() []Block {
	out := make([]Block, 0, bs.Len())
	bs.Each(func(b *Block) { out = append(out, *b) })
	return out
}
