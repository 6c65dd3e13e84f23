package orderstatus

// Marker is the visual state of one timeline step.
type Marker string

const (
	MarkerDoneTerminal     Marker = "done-terminal"
	MarkerDoneIntermediate Marker = "done-intermediate"
	MarkerPending          Marker = "pending"
)

// MarkerFor classifies step i of a timeline of length n.
func MarkerFor(completed bool, i, n int) Marker {
	switch {
	case !completed:
		return MarkerPending
	case i == n-1:
		return MarkerDoneTerminal
	default:
		return MarkerDoneIntermediate
	}
}

func Markers(timeline []TimelineStep) []Marker {
	out := make([]Marker, len(timeline))
	for i, s := range timeline {
		out[i] = MarkerFor(s.Completed, i, len(timeline))
	}
	return out
}

// Connectors reports, for each adjacent pair (i, i+1), whether the line
// between them is filled. It has len(timeline)-1 entries.
func Connectors(timeline []TimelineStep) []bool {
	if len(timeline) < 2 {
		return []bool{}
	}
	out := make([]bool, len(timeline)-1)
	for i := range out {
		out[i] = timeline[i].Completed && timeline[i+1].Completed
	}
	return out
}

// PanelState is the expand/collapse state of the timeline panel.
type PanelState int

const (
	PanelExpanded PanelState = iota
	PanelCollapsed
)

func (p PanelState) String() string {
	if p == PanelCollapsed {
		return "collapsed"
	}
	return "expanded"
}

// Panel is the timeline section toggle. The zero value is expanded.
type Panel struct {
	state PanelState
}

func (p *Panel) Toggle() {
	if p.state == PanelExpanded {
		p.state = PanelCollapsed
	} else {
		p.state = PanelExpanded
	}
}

func (p Panel) State() PanelState { return p.state }

func (p Panel) Expanded() bool { return p.state == PanelExpanded }
