package query

// Key identifies a cached result. Tag names the operation and is the unit of
// invalidation; Args is a canonical encoding of the operation's parameters.
type Key struct {
	Tag  string
	Args string
}

// NewKey returns a key for tag with canonical args.
func NewKey(tag, args string) Key {
	return Key{Tag: tag, Args: args}
}

func (k Key) String() string {
	if k.Args == "" {
		return k.Tag
	}
	return k.Tag + ":" + k.Args
}
