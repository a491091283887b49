package hotkeys

// TooltipLine is one row of the canvas hotkey tooltip.
type TooltipLine struct {
	Key    string `json:"key"`
	Action string `json:"action"`
}

type tooltipEntry struct {
	action    Action
	label     string
	keySuffix string
}

var tooltipEntries = []tooltipEntry{
	{action: ActionZoom, label: "Zoom canvas", keySuffix: " + wheel"},
	{action: ActionAdjust, label: "Adjust brush size", keySuffix: " + wheel"},
	{action: ActionReset, label: "Reset zoom"},
	{action: ActionFullscreen, label: "Fullscreen mode"},
	{action: ActionMove, label: "Move canvas"},
	{action: ActionOverlap, label: "Overlap"},
}

// Tooltip returns the tooltip rows for every enabled action.
// Wheel actions show the modifier plus " + wheel"; key actions show the
// last character of the key code.
func (c Config) Tooltip() []TooltipLine {
	lines := make([]TooltipLine, 0, len(tooltipEntries))
	for _, entry := range tooltipEntries {
		b := c.Binding(entry.action)
		if !b.Enabled() {
			continue
		}
		value := b.Normalized()
		key := value[len(value)-1:]
		if entry.keySuffix != "" {
			key = value + entry.keySuffix
		}
		lines = append(lines, TooltipLine{Key: key, Action: entry.label})
	}
	return lines
}
