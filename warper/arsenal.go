package warper

// StaticArsenal wraps a single Client so it satisfies
// metatile.Arsenal without metatile importing a concrete client type.
// Production code backs it with an RPCClient dialed at warperd's
// listener address; tests back it with a synthetic Client.
type StaticArsenal struct {
	Client Client
}

func (a StaticArsenal) Warper() Client { return a.Client }
