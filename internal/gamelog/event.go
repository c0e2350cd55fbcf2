package gamelog

// Event is a single timestamped round event. Kind selects which of the payload fields are meaningful:
//
//	EventCharge      Team, SteamID, Medigun
//	EventDrop        Team, SteamID (the medic who dropped)
//	EventMedicDeath  Team, SteamID (the medic), Killer
//	EventPointCap    Team, Point
//	EventKill        Attacker, Victim, Class (attacker class)
//
// Events of any other type decode as EventUnknown and are ignored by the extractors.
type Event struct {
	Kind     EventKind `json:"type"`
	Time     int       `json:"time"`
	Team     Team      `json:"team"`
	SteamID  string    `json:"steamid,omitempty"`
	Killer   string    `json:"killer,omitempty"`
	Medigun  Medigun   `json:"medigun,omitempty"`
	Point    int       `json:"point,omitempty"`
	Attacker string    `json:"attacker,omitempty"`
	Victim   string    `json:"victim,omitempty"`
	Class    Class     `json:"class,omitempty"`
}

// Round is one round of a log with its events in log order.
type Round struct {
	StartTime int64   `json:"start_time"`
	Winner    Team    `json:"winner"`
	Length    int     `json:"length"`
	FirstCap  Team    `json:"firstcap"`
	Events    []Event `json:"events"`
}
