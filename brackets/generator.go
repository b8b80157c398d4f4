package brackets

import (
	"encoding/json"
	"fmt"
)

type GenerateBracketParams struct {
	NumPlayers int
	// Settings is the JSON encoded DuelOptions or FFAOptions. Empty means defaults.
	Settings json.RawMessage
}

// BracketGenerator builds and restores one kind of tournament from stored
// settings.
type BracketGenerator interface {
	Generate(params GenerateBracketParams) (*Tournament, error)
	Restore(params GenerateBracketParams, events []StateEvent) (*Tournament, error)

	GetName() string
}

func NewGenerator(kind Kind) (BracketGenerator, error) {
	switch kind {
	case KindDuel:
		return &DuelGenerator{}, nil
	case KindFFA:
		return &FFAGenerator{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

type DuelGenerator struct{}

func (g *DuelGenerator) GetName() string { return string(KindDuel) }

func (g *DuelGenerator) Generate(params GenerateBracketParams) (*Tournament, error) {
	opts, err := decodeSettings[DuelOptions](params.Settings)
	if err != nil {
		return nil, err
	}
	return NewDuel(params.NumPlayers, opts)
}

func (g *DuelGenerator) Restore(params GenerateBracketParams, events []StateEvent) (*Tournament, error) {
	opts, err := decodeSettings[DuelOptions](params.Settings)
	if err != nil {
		return nil, err
	}
	return RestoreDuel(params.NumPlayers, opts, events)
}

type FFAGenerator struct{}

func (g *FFAGenerator) GetName() string { return string(KindFFA) }

func (g *FFAGenerator) Generate(params GenerateBracketParams) (*Tournament, error) {
	opts, err := decodeSettings[FFAOptions](params.Settings)
	if err != nil {
		return nil, err
	}
	return NewFFA(params.NumPlayers, opts)
}

func (g *FFAGenerator) Restore(params GenerateBracketParams, events []StateEvent) (*Tournament, error) {
	opts, err := decodeSettings[FFAOptions](params.Settings)
	if err != nil {
		return nil, err
	}
	return RestoreFFA(params.NumPlayers, opts, events)
}

func decodeSettings[T any](raw json.RawMessage) (T, error) {
	var opts T
	if len(raw) == 0 || string(raw) == "null" {
		return opts, nil
	}
	if err := json.Unmarshal(raw, &opts); err != nil {
		return opts, fmt.Errorf("%w: settings: %v", ErrInvalidOptions, err)
	}
	return opts, nil
}

// Build constructs a fresh tournament of kind from its stored settings.
func Build(kind Kind, numPlayers int, settings json.RawMessage) (*Tournament, error) {
	g, err := NewGenerator(kind)
	if err != nil {
		return nil, err
	}
	return g.Generate(GenerateBracketParams{NumPlayers: numPlayers, Settings: settings})
}

// RestoreKind rebuilds a tournament of kind by replaying events.
func RestoreKind(kind Kind, numPlayers int, settings json.RawMessage, events []StateEvent) (*Tournament, error) {
	g, err := NewGenerator(kind)
	if err != nil {
		return nil, err
	}
	return g.Restore(GenerateBracketParams{NumPlayers: numPlayers, Settings: settings}, events)
}
