package engine

import (
	"bytes"
	"encoding/json"

	"github.com/openalpha/cardex/game"
)

// Command is one inbound frame element.
type Command struct {
	Type string      `json:"type"`
	Data CommandData `json:"data"`
}

// CommandData is the union of every command's payload fields. Pointer fields
// distinguish absent from zero where zero is invalid anyway.
type CommandData struct {
	Name       string     `json:"name,omitempty"`
	Password   string     `json:"password,omitempty"`
	Player     string     `json:"player,omitempty"`
	Room       string     `json:"room,omitempty"`
	Instrument string     `json:"instrument,omitempty"`
	Kind       string     `json:"type,omitempty"`
	Strike     *int64     `json:"strike,omitempty"`
	Price      *int64     `json:"price,omitempty"`
	Size       *int64     `json:"size,omitempty"`
	Direction  string     `json:"direction,omitempty"`
	Card       *game.Card `json:"card,omitempty"`
}

// decodeFrame parses one websocket frame into commands. A frame carries
// either a single command object or a JSON array of them.
func decodeFrame(raw []byte) ([]Command, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var cmds []Command
		if err := json.Unmarshal(trimmed, &cmds); err != nil {
			return nil, err
		}
		return cmds, nil
	}
	var cmd Command
	if err := json.Unmarshal(trimmed, &cmd); err != nil {
		return nil, err
	}
	return []Command{cmd}, nil
}
