package emit

// Null discards every Event. It is the Shard's default Emitter: production
// graphs that never configure observability pay no allocation cost for it.
type Null struct{}

// NewNull returns a Null Emitter.
func NewNull() Null { return Null{} }

func (Null) Emit(Event)        {}
func (Null) EmitBatch([]Event) {}
func (Null) Flush()            {}
