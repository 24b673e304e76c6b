package photobox

// ArrangementKind is how finished photos are arranged on the strip.
type ArrangementKind string

const (
	ArrangementStrip ArrangementKind = "strip"
	ArrangementGrid  ArrangementKind = "grid"
	ArrangementWide  ArrangementKind = "wide"
)

// Layout is an immutable descriptor chosen once per session. Slots drives the
// size of every downstream per-slot collection.
type Layout struct {
	ID          string
	Name        string
	Kind        ArrangementKind
	Slots       int
	AspectRatio string
}

var layouts = []Layout{
	{ID: "strip-3", Name: "Classic Strip", Kind: ArrangementStrip, Slots: 3, AspectRatio: "4:3"},
	{ID: "grid-4", Name: "4-Cut Grid", Kind: ArrangementGrid, Slots: 4, AspectRatio: "4:3"},
	{ID: "wide-4", Name: "Wide Story", Kind: ArrangementWide, Slots: 4, AspectRatio: "16:9"},
}

func Layouts() []Layout {
	out := make([]Layout, len(layouts))
	copy(out, layouts)
	return out
}

func LayoutByID(id string) (Layout, bool) {
	for _, l := range layouts {
		if l.ID == id {
			return l, true
		}
	}
	return Layout{}, false
}

// Mode is the photobooth experience selected on the first stage.
type Mode string

const (
	ModeClassic   Mode = "classic"
	ModeNewspaper Mode = "newspaper"
)
