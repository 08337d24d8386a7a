// NetSentry - Industrial Network Anomaly Detection and Distribution
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/netsentry

package analytics

import (
	"time"

	"github.com/tomtom215/netsentry/internal/models"
)

// GraphEventLimit caps how many of the newest window events feed the graph.
const GraphEventLimit = 200

// GraphNode is one endpoint in the network graph. Counts cover every event
// the node participated in, as source or destination.
type GraphNode struct {
	ID          string `json:"id"`
	IP          string `json:"ip"`
	Type        string `json:"type"`
	AttackCount int    `json:"attack_count"`
	NormalCount int    `json:"normal_count"`
}

// GraphEdge is one aggregated traffic flow between two endpoints over one
// protocol. PacketCount accumulates across events; attack metadata keeps the
// most severe observation.
type GraphEdge struct {
	Source      string    `json:"source"`
	Target      string    `json:"target"`
	Protocol    string    `json:"protocol"`
	AttackType  string    `json:"attack_type,omitempty"`
	Severity    string    `json:"severity"`
	PacketCount int       `json:"packet_count"`
	Timestamp   time.Time `json:"timestamp"`
}

// Graph is the node/edge view of recent traffic.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Edges []GraphEdge `json:"edges"`
}

type edgeKey struct {
	source   string
	target   string
	protocol string
}

// BuildGraph derives a network graph from the given events, expected to be
// the newest GraphEventLimit entries of the window, oldest first. Nodes and
// edges keep first-appearance order so repeated builds over the same window
// render stably.
func BuildGraph(events []models.Event) Graph {
	nodes := make(map[string]*GraphNode)
	var nodeOrder []string
	edges := make(map[edgeKey]*GraphEdge)
	var edgeOrder []edgeKey

	touch := func(ip string) *GraphNode {
		node, ok := nodes[ip]
		if !ok {
			node = &GraphNode{ID: ip, IP: ip, Type: "device"}
			nodes[ip] = node
			nodeOrder = append(nodeOrder, ip)
		}
		return node
	}

	for i := range events {
		event := &events[i]
		if event.SourceIP == "" || event.DestinationIP == "" {
			continue
		}
		src := touch(event.SourceIP)
		dst := touch(event.DestinationIP)

		attack := event.IsAttack()
		if attack {
			src.AttackCount++
			dst.AttackCount++
		} else {
			src.NormalCount++
			dst.NormalCount++
		}

		key := edgeKey{source: event.SourceIP, target: event.DestinationIP, protocol: event.Protocol}
		edge, ok := edges[key]
		if !ok {
			edge = &GraphEdge{
				Source:   key.source,
				Target:   key.target,
				Protocol: key.protocol,
				Severity: string(models.SeverityLow),
			}
			edges[key] = edge
			edgeOrder = append(edgeOrder, key)
		}
		edge.PacketCount++
		edge.Timestamp = event.Timestamp
		if attack {
			severity := event.EffectiveSeverity()
			if models.Severity(edge.Severity).Rank() <= severity.Rank() {
				edge.Severity = string(severity)
				edge.AttackType = event.Category()
			}
		}
	}

	graph := Graph{
		Nodes: make([]GraphNode, 0, len(nodeOrder)),
		Edges: make([]GraphEdge, 0, len(edgeOrder)),
	}
	for _, ip := range nodeOrder {
		graph.Nodes = append(graph.Nodes, *nodes[ip])
	}
	for _, key := range edgeOrder {
		graph.Edges = append(graph.Edges, *edges[key])
	}
	return graph
}
