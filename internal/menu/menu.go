// Package menu serves the weekly mess menu bundled with the binary.
package menu

import (
	_ "embed"
	"encoding/json"
	"sync"
)

//go:embed menu.json
var raw []byte

// Row is one day of the weekly menu.
type Row struct {
	Day    string `json:"day"`
	Lunch  string `json:"lunch"`
	Dinner string `json:"dinner"`
}

// Member is one mess committee member.
type Member struct {
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// Board is everything shown on the public mess page.
type Board struct {
	Menu         []Row    `json:"menu"`
	Instructions []string `json:"instructions"`
	Committee    []Member `json:"committee"`
}

var (
	once  sync.Once
	board Board
	err   error
)

// Load parses the bundled menu once.
func Load() (Board, error) {
	once.Do(func() { err = json.Unmarshal(raw, &board) })
	return board, err
}
