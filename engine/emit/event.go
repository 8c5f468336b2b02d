// Package emit provides the DebugEvent sink the dflow engine reports
// execution detail through: which operator did what, to which pointstamp,
// with what effect. It mirrors the teacher's graph/emit package — an
// Emitter interface with Null, Log, Buffered, and OpenTelemetry-backed
// implementations — so the engine can be run silent, logged, captured for
// tests, or traced, without its own code ever branching on which.
package emit

// Kind names the category of a debug Event.
type Kind string

const (
	KindNodeProcessed     Kind = "node_processed"
	KindFrontierAdvanced  Kind = "frontier_advanced"
	KindInputPushed       Kind = "input_pushed"
	KindInputRejected     Kind = "input_rejected"
	KindOutputProduced    Kind = "output_produced"
	KindDistinctRecompute Kind = "distinct_recompute"
	KindReduceRecompute   Kind = "reduce_recompute"
)

// Event is one unit of engine-internal debug detail. RunID ties every Event
// a single Shard emits over its lifetime together (a Shard has no
// checkpoint/resume concept, but a host running many Shards still needs to
// tell their events apart in one combined log or trace); Step is a
// per-Shard sequence number incremented on every emitted Event, giving
// events within a run a total order even when two share a Kind and NodeID.
// Fields is small and flat by convention (timestamp string, counts) so
// every Emitter implementation, including the OTel one, can attach it
// directly as span or log attributes without a schema.
type Event struct {
	Kind   Kind
	RunID  string
	Step   int
	NodeID int
	Fields map[string]any
}

// Emitter receives Events and batches of Events from the engine. The
// engine itself never calls Flush; the host calls it when it is done with
// the Shard being observed, so a buffering Emitter can hand off (and the
// OTel Emitter can end its span).
type Emitter interface {
	Emit(e Event)
	EmitBatch(es []Event)
	Flush()
}
