package store

import (
	"fmt"

	"github.com/roach88/mthresh/internal/ir"
	"github.com/roach88/mthresh/internal/typeinfer"
)

// Run is one recorded inference pass over one program.
type Run struct {
	ID          string `json:"id"`
	Program     string `json:"program"`
	ProgramHash string `json:"program_hash"`
	Seq         int64  `json:"seq"` // assigned by WriteRun
	Solved      int    `json:"solved"`
	Failed      int    `json:"failed"`
	Deferred    int    `json:"deferred"`
	IRVersion   string `json:"ir_version"`
	ToolVersion string `json:"tool_version"`

	Nodes []NodeRecord `json:"nodes,omitempty"`
}

// NodeRecord is the stored result of one binding.
type NodeRecord struct {
	Position   int    `json:"position"`
	Name       string `json:"name"`
	Op         string `json:"op"`
	CallHash   string `json:"call_hash"`
	Outcome    string `json:"outcome"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
	OutputType string `json:"output_type,omitempty"`
	Attrs      string `json:"attrs"` // canonical JSON
}

// CallRecord is a node result together with the run it belongs to.
type CallRecord struct {
	RunID   string     `json:"run_id"`
	Program string     `json:"program"`
	Seq     int64      `json:"seq"`
	Node    NodeRecord `json:"node"`
}

// NewRun converts an inference result into a storable run.
func NewRun(id string, prog *ir.Program, res *typeinfer.Result) (Run, error) {
	programHash, err := ir.ProgramHash(prog)
	if err != nil {
		return Run{}, fmt.Errorf("new run: %w", err)
	}

	run := Run{
		ID:          id,
		Program:     prog.Name,
		ProgramHash: programHash,
		Solved:      len(res.Solved()),
		Failed:      len(res.Failed()),
		Deferred:    len(res.Deferred()),
		IRVersion:   ir.IRVersion,
		ToolVersion: ir.ToolVersion,
	}

	for i, n := range res.Nodes {
		var attrs ir.Attrs
		if b, ok := prog.Binding(n.Name); ok {
			attrs = b.Call.Attrs
		}
		attrsJSON, err := marshalAttrs(attrs)
		if err != nil {
			return Run{}, fmt.Errorf("new run: node %q: %w", n.Name, err)
		}

		rec := NodeRecord{
			Position:   i,
			Name:       n.Name,
			Op:         n.Op,
			CallHash:   n.Hash,
			Outcome:    n.Outcome.String(),
			OutputType: n.OutputString(),
			Attrs:      attrsJSON,
		}
		if n.Diagnostic != nil {
			rec.Code = n.Diagnostic.Code
			rec.Message = n.Diagnostic.Message
		}
		run.Nodes = append(run.Nodes, rec)
	}

	return run, nil
}
