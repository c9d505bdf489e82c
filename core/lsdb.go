package core

import (
	"maps"

	"github.com/encodeous/lsr/state"
)

// Verdict is the outcome of offering an advertisement to the LSDB
type Verdict int

const (
	// Stale advertisements carry a seqno no newer than the stored one and change nothing
	Stale Verdict = iota
	// Refreshed advertisements are newer but repeat the stored content. Only the stored seqno advances.
	Refreshed
	// Accepted advertisements replace the stored entry and must be installed and relayed
	Accepted
)

func (v Verdict) String() string {
	switch v {
	case Stale:
		return "stale"
	case Refreshed:
		return "refreshed"
	case Accepted:
		return "accepted"
	}
	return "unknown"
}

// Accept applies the acceptance policy of s to adv and records the result in the LSDB
func Accept(s *state.RouterState, adv state.Advertisement) Verdict {
	entry, ok := s.Lsdb[adv.Origin]
	if ok && adv.Seqno <= entry.Seqno {
		return Stale
	}
	if ok && s.Policy != state.PolicySequence && maps.Equal(entry.Neighbours, adv.Neighbours) {
		entry.Seqno = adv.Seqno
		s.Lsdb[adv.Origin] = entry
		return Refreshed
	}
	s.Lsdb[adv.Origin] = state.LsdbEntry{
		Seqno:      adv.Seqno,
		Neighbours: maps.Clone(adv.Neighbours),
	}
	return Accepted
}

// installAdvertisement replaces every edge of the advertisement's origin. Edges incident to self only ever come from the local adjacency.
func installAdvertisement(s *state.RouterState, adv state.Advertisement) {
	s.Graph.RemoveNode(adv.Origin)
	s.Graph.AddNode(adv.Origin)
	for neigh, cost := range adv.Neighbours {
		if neigh == s.Id {
			continue
		}
		s.Graph.AddEdge(adv.Origin, neigh, cost)
	}
	if link, ok := s.Adjacency[adv.Origin]; ok {
		s.Graph.AddEdge(s.Id, adv.Origin, link.Cost)
	}
}
