package event

// World notifications. Sprites are referred to by id and type name only;
// the sprite may already be gone when the event is delivered.

// RemovalReason says why a sprite left its world.
type RemovalReason string

const (
	RemovedOutOfBounds RemovalReason = "out_of_bounds"
	RemovedExplicit    RemovalReason = "removed"
	RemovedReplaced    RemovalReason = "replaced"
)

type SpriteRemoved struct {
	ID     string
	Name   string
	X, Y   float64
	Reason RemovalReason
}

// KnockedOut is emitted when a character enters the ko movement.
type KnockedOut struct {
	ID   string
	Name string
	By   string // id of the sprite that caused it, empty for none
}

// TileBumped is emitted when a character hits a tile from below.
type TileBumped struct {
	TileID string
	Tile   string
	ByID   string
}

// Landed is emitted when a jumping or falling character comes to rest.
type Landed struct {
	ID    string
	Name  string
	Y     float64
	State string
}
