package room

// Player is the authoritative record for one room member. All of its fields
// live here from the outset; nothing augments the type after creation.
type Player struct {
	ID         string
	Name       string
	Ready      bool
	Spectating bool

	// joinOrder fixes the player's display color across rounds.
	joinOrder int

	// lastAck is the highest input sequence incorporated into a tick;
	// broadcasts echo it so the client can prune confirmed predictions.
	lastAck uint64
	// stagedAck holds sequences seen since the previous tick. It is
	// promoted to lastAck when the tick drains the input buffer, never
	// before, so the server only acknowledges inputs it has applied.
	stagedAck uint64
}

func (p *Player) snapshotAck() uint64 {
	return p.lastAck
}
