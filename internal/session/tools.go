package session

import (
	"sort"
	"strings"

	"github.com/careline/voicedesk/internal/model/persona"
)

// TransferToolPrefix names the transfer operations a persona exposes to the
// response generator, e.g. "transfer_to_support".
const TransferToolPrefix = "transfer_to_"

// ToolTable maps a persona's transfer-operation names to target persona
// names. It is derived from the capability set, so resolving a tool is
// itself the capability check: a target outside the set simply has no tool.
type ToolTable struct {
	targets map[string]string
}

// ToolTableFor builds the table for one persona.
func ToolTableFor(p persona.Persona) ToolTable {
	targets := make(map[string]string, len(p.TransferTargets))
	for _, target := range p.TransferTargets {
		targets[TransferToolPrefix+target] = target
	}
	return ToolTable{targets: targets}
}

// Resolve maps a tool name to its target persona.
func (t ToolTable) Resolve(tool string) (string, bool) {
	target, ok := t.targets[strings.TrimSpace(tool)]
	return target, ok
}

// Tools lists the table's tool names in stable order.
func (t ToolTable) Tools() []string {
	names := make([]string, 0, len(t.targets))
	for name := range t.targets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
