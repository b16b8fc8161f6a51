package battle

type Route string

const (
	RouteActive     Route = "active"
	RoutePostBattle Route = "postbattle"
	RoutePreBattle  Route = "prebattle"
)

// RouteFor maps a battle status to the screen the viewer belongs on. The
// mapping is total: unknown or future statuses fall back to the prebattle
// screen rather than stranding the viewer.
func RouteFor(s Status) Route {
	switch s {
	case StatusActive:
		return RouteActive
	case StatusPostBattle:
		return RoutePostBattle
	default:
		return RoutePreBattle
	}
}

// Caps is what the current viewer may do with a battle, derived purely from
// the battle record and the viewer's identity.
type Caps struct {
	IsInviting       bool
	CanAcceptInvite  bool
	CanCreatorCancel bool
	Participant      *Participant // the viewer's own record, nil if not a participant
}

func Capabilities(b Battle, viewerID string) Caps {
	caps := Caps{IsInviting: b.Status == StatusInviting}

	if p, ok := b.Participant(viewerID); ok {
		caps.Participant = &p
		caps.CanAcceptInvite = caps.IsInviting && p.Status == Invited
	}

	caps.CanCreatorCancel = b.CreatedByUserID == viewerID &&
		(b.Status == StatusInviting || b.Status == StatusPreBattle)

	return caps
}
