package gamelog

import (
	"strings"
)

// Team represents a players team as recorded in the log.
type Team int

const (
	UNASSIGNED Team = 0
	RED        Team = 1
	BLU        Team = 2
)

func (t Team) String() string {
	switch t {
	case RED:
		return "Red"
	case BLU:
		return "Blue"
	default:
		return "Unassigned"
	}
}

// Opponent returns the opposing team. Unassigned has no opponent.
func (t Team) Opponent() Team {
	switch t {
	case RED:
		return BLU
	case BLU:
		return RED
	default:
		return UNASSIGNED
	}
}

func (t Team) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *Team) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "red":
		*t = RED
	case "blue", "blu":
		*t = BLU
	default:
		*t = UNASSIGNED
	}

	return nil
}

// Class is a TF2 player class. The numeric values match the class ids used by the export schema.
type Class int

const (
	Undefined Class = 0
	Scout     Class = 1
	Soldier   Class = 2
	Pyro      Class = 3
	Demo      Class = 4
	Heavy     Class = 5
	Engineer  Class = 6
	Medic     Class = 7
	Sniper    Class = 8
	Spy       Class = 9
)

// Classes lists every playable class in id order.
var Classes = []Class{Scout, Soldier, Pyro, Demo, Heavy, Engineer, Medic, Sniper, Spy} //nolint:gochecknoglobals

var classNames = map[Class]string{ //nolint:gochecknoglobals
	Scout:    "scout",
	Soldier:  "soldier",
	Pyro:     "pyro",
	Demo:     "demoman",
	Heavy:    "heavyweapons",
	Engineer: "engineer",
	Medic:    "medic",
	Sniper:   "sniper",
	Spy:      "spy",
}

func (c Class) String() string {
	if name, found := classNames[c]; found {
		return name
	}

	return "undefined"
}

func (c Class) Valid() bool {
	return c >= Scout && c <= Spy
}

func (c Class) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Class) UnmarshalText(text []byte) error {
	*c = ParseClass(string(text))

	return nil
}

// ParseClass converts a logs.tf class name into a Class. Unknown names return Undefined.
func ParseClass(name string) Class {
	name = strings.ToLower(name)
	for class, className := range classNames {
		if className == name {
			return class
		}
	}

	switch name {
	case "demo":
		return Demo
	case "heavy":
		return Heavy
	}

	return Undefined
}

// Medigun holds which medigun a player was using.
type Medigun int

const (
	UnknownMedigun Medigun = iota
	Uber
	Kritzkrieg
	QuickFix
	Vaccinator
)

var medigunNames = map[Medigun]string{ //nolint:gochecknoglobals
	Uber:       "medigun",
	Kritzkrieg: "kritzkrieg",
	QuickFix:   "quickfix",
	Vaccinator: "vaccinator",
}

func (m Medigun) String() string {
	if name, found := medigunNames[m]; found {
		return name
	}

	return "unknown"
}

func (m Medigun) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Medigun) UnmarshalText(text []byte) error {
	*m = UnknownMedigun

	for medigun, name := range medigunNames {
		if name == strings.ToLower(string(text)) {
			*m = medigun

			break
		}
	}

	return nil
}

// EventKind is the discriminator of a round Event.
type EventKind int

const (
	EventUnknown EventKind = iota
	EventCharge
	EventDrop
	EventMedicDeath
	EventPointCap
	EventKill
)

var eventKindNames = map[string]EventKind{ //nolint:gochecknoglobals
	"charge":      EventCharge,
	"drop":        EventDrop,
	"medic_death": EventMedicDeath,
	"pointcap":    EventPointCap,
	"kill":        EventKill,
}

func (k EventKind) String() string {
	for name, kind := range eventKindNames {
		if kind == k {
			return name
		}
	}

	return "unknown"
}

func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *EventKind) UnmarshalText(text []byte) error {
	kind, found := eventKindNames[string(text)]
	if !found {
		kind = EventUnknown
	}

	*k = kind

	return nil
}
