// Package cfg defines statement-level Control Flow Graphs (CFGs).
// It provides the generic graph consumed by the dataflow solver, a builder
// from lowered IR, and a JSON-friendly export of the graph.
package cfg

// EdgeKind represents the kind of a CFG edge.
type EdgeKind string

const (
	EdgeEntry         EdgeKind = "entry"          // Synthetic entry to first statement
	EdgeFallThrough   EdgeKind = "fall_through"   // Sequential flow to the next statement
	EdgeIfTrue        EdgeKind = "if_true"        // Taken branch of a conditional
	EdgeIfFalse       EdgeKind = "if_false"       // Not-taken branch of a conditional
	EdgeSwitchCase    EdgeKind = "switch_case"    // Switch arm selected by a case value
	EdgeSwitchDefault EdgeKind = "switch_default" // Switch default arm
	EdgeGoto          EdgeKind = "goto"           // Unconditional jump
	EdgeReturn        EdgeKind = "return"         // Return to the synthetic exit
)

// Edge is a directed edge between two nodes.
type Edge[N comparable] struct {
	Source    N
	Target    N
	Kind      EdgeKind
	CaseValue int32 // only meaningful for EdgeSwitchCase
}

// NodeInfo describes one CFG node in exported form.
type NodeInfo struct {
	ID     int    `json:"id"`               // Statement index (-1 entry, len(stmts) exit)
	Kind   string `json:"kind"`             // entry, exit, assign, invoke, if, switch, goto, return, nop
	Line   int    `json:"line,omitempty"`   // Source line
	Column int    `json:"column,omitempty"` // Source column
	Text   string `json:"text"`             // Rendered statement

	Unreachable bool `json:"unreachable,omitempty"` // No path from the entry
}

// EdgeInfo describes one CFG edge in exported form.
type EdgeInfo struct {
	SourceID  int      `json:"source_id"`            // ID of the source node
	TargetID  int      `json:"target_id"`            // ID of the target node
	Kind      EdgeKind `json:"kind"`                 // Kind of edge
	CaseValue *int32   `json:"case_value,omitempty"` // Case value for switch_case edges
}

// CFGInfo represents the complete exported Control Flow Graph for a function.
type CFGInfo struct {
	FunctionName         string     `json:"function_name"`         // Name of the function
	Nodes                []NodeInfo `json:"nodes"`                 // Nodes in stable order
	Edges                []EdgeInfo `json:"edges"`                 // Edges grouped by source node
	EntryID              int        `json:"entry_id"`              // ID of the entry node
	ExitID               int        `json:"exit_id"`               // ID of the exit node
	Loops                int        `json:"loops"`                 // Number of natural loops (cyclic components)
	CyclomaticComplexity int        `json:"cyclomatic_complexity"` // E - N + 2
}
