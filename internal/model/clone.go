package model

// Clone returns a copy of s that shares no backing arrays with it.
func (s State) Clone() State {
	out := s
	out.Nodes = cloneSlice(s.Nodes)
	out.Metrics = cloneSlice(s.Metrics)
	out.Models = cloneSlice(s.Models)
	out.FedRounds = cloneSlice(s.FedRounds)
	out.Peers = cloneSlice(s.Peers)
	out.Logs = cloneSlice(s.Logs)
	return out
}

// Clone returns a copy of s that shares no backing arrays with it.
func (s Snapshot) Clone() Snapshot {
	return Snapshot{
		Nodes:     cloneSlice(s.Nodes),
		Metrics:   cloneSlice(s.Metrics),
		FedRounds: cloneSlice(s.FedRounds),
		Models:    cloneSlice(s.Models),
		Peers:     cloneSlice(s.Peers),
	}
}

func cloneSlice[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
