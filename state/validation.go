package state

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"regexp"

	"github.com/encodeous/lsr/protocol"
)

var namePattern, _ = regexp.Compile("^[0-9A-Za-z._-]+$")

func PathValidator(s string) error {
	_, err := os.Stat(path.Dir(s))
	if err != nil {
		return err
	}
	_, err = filepath.Abs(s)
	return err
}

func NameValidator(s string) error {
	if !namePattern.MatchString(s) {
		return fmt.Errorf("%s is not a valid name, must match pattern %s", s, namePattern.String())
	}
	if len(s) > 100 {
		return fmt.Errorf("len(\"%s\") = %d > 100 is too long", s, len(s))
	}
	return nil
}

func PolicyValidator(p AcceptPolicy) error {
	switch p {
	case PolicyContent, PolicySequence:
		return nil
	}
	return fmt.Errorf("unknown accept policy %q, must be %s or %s", p, PolicyContent, PolicySequence)
}

func CodecValidator(name string) error {
	_, err := protocol.Lookup(name)
	return err
}

func NodeConfigValidator(node *LocalCfg) error {
	if err := NameValidator(string(node.Id)); err != nil {
		return err
	}
	if node.Heartbeat <= 0 {
		return fmt.Errorf("heartbeat must be positive, got %s", node.Heartbeat)
	}
	if err := PolicyValidator(node.AcceptPolicy); err != nil {
		return err
	}
	if err := CodecValidator(node.Codec); err != nil {
		return err
	}
	if node.LogPath != "" {
		if err := PathValidator(node.LogPath); err != nil {
			return err
		}
	}
	return nil
}

func NetworkConfigValidator(cfg *NetworkCfg) error {
	if len(cfg.Nodes) == 0 {
		return fmt.Errorf("network must define at least one node")
	}
	defined := make(map[NodeId]bool)
	for _, node := range cfg.Nodes {
		if err := NameValidator(string(node.Id)); err != nil {
			return err
		}
		if defined[node.Id] {
			return fmt.Errorf("duplicate node: %s", node.Id)
		}
		defined[node.Id] = true
	}
	if cfg.Heartbeat <= 0 {
		return fmt.Errorf("heartbeat must be positive, got %s", cfg.Heartbeat)
	}
	if err := PolicyValidator(cfg.AcceptPolicy); err != nil {
		return err
	}
	if err := CodecValidator(cfg.Codec); err != nil {
		return err
	}

	seen := make(map[Pair[NodeId, NodeId]]bool)
	for _, link := range cfg.Links {
		for _, end := range []NodeId{link.A, link.B} {
			if !defined[end] {
				return fmt.Errorf("node %s not defined", end)
			}
		}
		if link.A == link.B {
			return fmt.Errorf("link %s, %s connects a node to itself", link.A, link.B)
		}
		key := MakeSortedPair(link.A, link.B)
		if seen[key] {
			return fmt.Errorf("duplicate link found: %s, %s", key.V1, key.V2)
		}
		seen[key] = true
		if link.Cost == 0 {
			return fmt.Errorf("link %s, %s must have a positive cost", link.A, link.B)
		}
		if link.Loss < 0 || link.Loss >= 1 {
			return fmt.Errorf("link %s, %s has loss %v outside [0, 1)", link.A, link.B, link.Loss)
		}
		if link.Latency < 0 {
			return fmt.Errorf("link %s, %s has negative latency", link.A, link.B)
		}
	}

	for _, ev := range cfg.Events {
		if ev.At < 0 {
			return fmt.Errorf("event on %s, %s has a negative offset", ev.A, ev.B)
		}
		if ev.Action != ActionUp && ev.Action != ActionDown {
			return fmt.Errorf("event on %s, %s has unknown action %q", ev.A, ev.B, ev.Action)
		}
		if cfg.FindLink(ev.A, ev.B) == -1 {
			return fmt.Errorf("event references undefined link %s, %s", ev.A, ev.B)
		}
	}
	return nil
}
