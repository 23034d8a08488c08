package ludo

import (
	"encoding/json"
	"fmt"
)

// Area is a unit's board-presence state.
type Area int

const (
	AreaSpawn Area = iota + 1 // not yet in play
	AreaTrack                 // in play, position derived from distance
	AreaFinish                // completed, immobile
)

func (a Area) String() string {
	switch a {
	case AreaSpawn:
		return "SPAWN"
	case AreaTrack:
		return "TRACK"
	case AreaFinish:
		return "FINISH"
	default:
		return fmt.Sprintf("Area(%d)", int(a))
	}
}

// MarshalJSON keeps the persisted snapshot format symbolic so saves
// round-trip exactly and stay readable.
func (a Area) MarshalJSON() ([]byte, error) {
	switch a {
	case AreaSpawn, AreaTrack, AreaFinish:
		return json.Marshal(a.String())
	default:
		return nil, fmt.Errorf("ludo: invalid area %d", int(a))
	}
}

func (a *Area) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "SPAWN":
		*a = AreaSpawn
	case "TRACK":
		*a = AreaTrack
	case "FINISH":
		*a = AreaFinish
	default:
		return fmt.Errorf("ludo: invalid area %q", s)
	}
	return nil
}

// Unit belongs to exactly one player. TrackDistance is monotonically
// non-decreasing while on track, reset to 0 on capture or spawn, and frozen
// at TrackSize once finished.
type Unit struct {
	Index         int  `json:"index"`
	PlayerIndex   int  `json:"player_index"`
	Area          Area `json:"area"`
	TrackDistance int  `json:"track_distance"`
}

// Name is the unit's single-letter display name.
func (u Unit) Name() string { return string(unitNames[u.Index]) }

func (u Unit) InSpawn() bool  { return u.Area == AreaSpawn }
func (u Unit) OnTrack() bool  { return u.Area == AreaTrack }
func (u Unit) Finished() bool { return u.Area == AreaFinish }

func (u *Unit) moveToSpawn() {
	u.Area = AreaSpawn
	u.TrackDistance = 0
}

func (u *Unit) moveToTrack(distance int) {
	u.Area = AreaTrack
	u.TrackDistance = distance
}

func (u *Unit) moveToFinish(trackSize int) {
	u.Area = AreaFinish
	u.TrackDistance = trackSize
}
