// Package scene converts a raw diagram scene (shapes, bound text, arrows)
// into an agent roster. Parsing is a pure function over the element list;
// the drawing widget itself is an external collaborator.
package scene

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/crewdeck/crewdeck/internal/team"
)

// LeaderColor is the shape background color that marks an agent as the team
// leader. Any other background parses as a teammate; the mapping is a closed
// two-way convention, not open styling.
const LeaderColor = "#ffd43b"

// Binding references the element an arrow endpoint or bound text attaches to.
type Binding struct {
	ElementID string `json:"elementId"`
}

// Element is one raw scene element. Only the fields the parser reads are
// declared; everything else in the scene file is carried by the editor.
type Element struct {
	ID     string  `json:"id"`
	Type   string  `json:"type"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`

	// Text elements bound to shapes.
	ContainerID string `json:"containerId,omitempty"`
	Text        string `json:"text,omitempty"`

	BackgroundColor string `json:"backgroundColor,omitempty"`

	// Arrow endpoints.
	StartBinding *Binding `json:"startBinding,omitempty"`
	EndBinding   *Binding `json:"endBinding,omitempty"`

	IsDeleted bool `json:"isDeleted,omitempty"`
}

// Agent is a shape recognized as an agent candidate.
type Agent struct {
	ID     string
	Name   string
	Role   team.Role
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Connection is a directed edge between two agent shapes.
type Connection struct {
	FromID string
	ToID   string
}

// ParsedTeam is the roster extracted from one scene.
type ParsedTeam struct {
	Agents      []Agent
	Connections []Connection
}

// Parse extracts the agent roster from a scene element list. Soft-deleted
// elements are ignored, shapes of type rectangle/diamond/ellipse become
// agents, and arrows bound to two agent shapes become connections. Arrows
// with a missing or dangling endpoint are dropped.
func Parse(elements []Element) ParsedTeam {
	var shapes, texts, arrows []Element
	for _, el := range elements {
		if el.IsDeleted {
			continue
		}
		switch el.Type {
		case "rectangle", "diamond", "ellipse":
			shapes = append(shapes, el)
		case "text":
			texts = append(texts, el)
		case "arrow":
			arrows = append(arrows, el)
		}
	}

	agents := make([]Agent, 0, len(shapes))
	agentIDs := make(map[string]struct{}, len(shapes))
	for _, shape := range shapes {
		name := ""
		for _, txt := range texts {
			if txt.ContainerID == shape.ID {
				name = normalizeName(txt.Text)
				break
			}
		}
		if name == "" {
			name = fallbackName(shape.ID)
		}

		role := team.RoleTeammate
		if strings.EqualFold(shape.BackgroundColor, LeaderColor) {
			role = team.RoleLeader
		}

		agents = append(agents, Agent{
			ID:     shape.ID,
			Name:   name,
			Role:   role,
			X:      shape.X,
			Y:      shape.Y,
			Width:  shape.Width,
			Height: shape.Height,
		})
		agentIDs[shape.ID] = struct{}{}
	}

	var connections []Connection
	for _, arrow := range arrows {
		if arrow.StartBinding == nil || arrow.EndBinding == nil {
			continue
		}
		from, to := arrow.StartBinding.ElementID, arrow.EndBinding.ElementID
		if _, ok := agentIDs[from]; !ok {
			continue
		}
		if _, ok := agentIDs[to]; !ok {
			continue
		}
		connections = append(connections, Connection{FromID: from, ToID: to})
	}

	return ParsedTeam{Agents: agents, Connections: connections}
}

// Neighbors returns the ids connected to the given agent. Direction is
// retained on the edge itself, but membership is undirected: incoming and
// outgoing peers both count.
func (p ParsedTeam) Neighbors(agentID string) []string {
	var out []string
	for _, c := range p.Connections {
		switch agentID {
		case c.FromID:
			out = append(out, c.ToID)
		case c.ToID:
			out = append(out, c.FromID)
		}
	}
	return out
}

// normalizeName collapses line breaks and repeated whitespace in a bound
// label to single spaces.
func normalizeName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// fallbackName synthesizes a display name from a truncated element id.
func fallbackName(id string) string {
	short := id
	if len(short) > 4 {
		short = short[:4]
	}
	return "Agent " + short
}

// File is the on-disk scene document produced by the diagram editor's export.
type File struct {
	Type     string    `json:"type"`
	Version  int       `json:"version"`
	Elements []Element `json:"elements"`
}

// DecodeFile reads a scene document from r.
func DecodeFile(r io.Reader) (*File, error) {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decoding scene: %w", err)
	}
	return &f, nil
}

// LoadFile reads a scene document from disk.
func LoadFile(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening scene %s: %w", path, err)
	}
	defer f.Close()
	return DecodeFile(f)
}
