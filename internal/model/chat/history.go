package chat

// History is an ordered conversation log. Insertion order is conversation
// order, and no two items share an ID. History is a plain data structure;
// callers that share one across goroutines are responsible for locking.
type History struct {
	items []Item
	seen  map[string]struct{}
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{seen: make(map[string]struct{})}
}

// Append merges items onto the end of the history. Items whose ID is
// already present are skipped, so relative order of the remainder is kept
// and the no-duplicate invariant holds.
func (h *History) Append(items ...Item) {
	if h.seen == nil {
		h.seen = make(map[string]struct{})
	}
	for _, it := range items {
		if _, ok := h.seen[it.ID]; ok {
			continue
		}
		h.seen[it.ID] = struct{}{}
		h.items = append(h.items, it)
	}
}

// Items returns a copy of the log in conversation order.
func (h *History) Items() []Item {
	out := make([]Item, len(h.items))
	copy(out, h.items)
	return out
}

// Len reports the number of items in the log.
func (h *History) Len() int {
	return len(h.items)
}

// TruncateOptions selects which part of a history survives a handoff.
type TruncateOptions struct {
	KeepLast           int
	KeepSystemMessages bool
	KeepFunctionItems  bool
}

// DefaultHandoffPolicy keeps the last six non-system items, function-call
// records included.
func DefaultHandoffPolicy() TruncateOptions {
	return TruncateOptions{
		KeepLast:           6,
		KeepSystemMessages: false,
		KeepFunctionItems:  true,
	}
}

// Truncate returns the carried-over subset of items for a handoff. It scans
// from most recent to oldest collecting up to opts.KeepLast retainable
// items, restores chronological order, then strips any leading run of
// function-call records, since a dangling call without the turn that
// produced it is useless to the next persona.
func Truncate(items []Item, opts TruncateOptions) []Item {
	if opts.KeepLast <= 0 {
		return nil
	}

	kept := make([]Item, 0, opts.KeepLast)
	for i := len(items) - 1; i >= 0 && len(kept) < opts.KeepLast; i-- {
		it := items[i]
		if !opts.KeepSystemMessages && it.Type == ItemMessage && it.Role == RoleSystem {
			continue
		}
		if !opts.KeepFunctionItems && it.IsFunction() {
			continue
		}
		kept = append(kept, it)
	}

	// kept is newest-first; restore conversation order.
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}

	start := 0
	for start < len(kept) && kept[start].IsFunction() {
		start++
	}
	return kept[start:]
}
