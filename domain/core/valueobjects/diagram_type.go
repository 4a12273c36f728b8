package valueobjects

import "strings"

// DiagramType classifies Mermaid source by its leading keyword.
// The classification is informational only; it never affects rendering.
type DiagramType string

const (
	TypeFlowchart    DiagramType = "flowchart"
	TypeSequence     DiagramType = "sequence"
	TypeClass        DiagramType = "class"
	TypeState        DiagramType = "state"
	TypeER           DiagramType = "er"
	TypeJourney      DiagramType = "journey"
	TypeGantt        DiagramType = "gantt"
	TypePie          DiagramType = "pie"
	TypeQuadrant     DiagramType = "quadrant"
	TypeRequirement  DiagramType = "requirement"
	TypeGitGraph     DiagramType = "gitgraph"
	TypeC4           DiagramType = "c4"
	TypeMindmap      DiagramType = "mindmap"
	TypeTimeline     DiagramType = "timeline"
	TypeZenUML       DiagramType = "zenuml"
	TypeSankey       DiagramType = "sankey"
	TypeXY           DiagramType = "xy"
	TypeBlock        DiagramType = "block"
	TypePacket       DiagramType = "packet"
	TypeKanban       DiagramType = "kanban"
	TypeArchitecture DiagramType = "architecture"
	TypeUnknown      DiagramType = "unknown"
)

// typeKeywords maps each diagram type to the keywords that may start its
// source. Longer keywords are checked before shorter ones so prefixes like
// "statediagram" win over "state".
var typeKeywords = []struct {
	diagramType DiagramType
	keywords    []string
}{
	{TypeC4, []string{"c4context", "c4container", "c4component", "c4dynamic", "c4deployment"}},
	{TypeSequence, []string{"sequencediagram", "sequence"}},
	{TypeClass, []string{"classdiagram", "class"}},
	{TypeState, []string{"statediagram", "state"}},
	{TypeER, []string{"erdiagram", "er"}},
	{TypeQuadrant, []string{"quadrantchart"}},
	{TypeRequirement, []string{"requirementdiagram"}},
	{TypeGitGraph, []string{"gitgraph"}},
	{TypeFlowchart, []string{"flowchart", "graph"}},
	{TypeJourney, []string{"journey"}},
	{TypeGantt, []string{"gantt"}},
	{TypePie, []string{"pie"}},
	{TypeMindmap, []string{"mindmap"}},
	{TypeTimeline, []string{"timeline"}},
	{TypeZenUML, []string{"zenuml"}},
	{TypeSankey, []string{"sankey"}},
	{TypeXY, []string{"xychart"}},
	{TypeArchitecture, []string{"architecture"}},
	{TypePacket, []string{"packet"}},
	{TypeKanban, []string{"kanban"}},
	{TypeBlock, []string{"block"}},
}

// DetectDiagramType infers the diagram type from Mermaid source.
// It scans the first non-blank, non-comment line for a known keyword prefix
// and returns TypeUnknown when nothing matches.
func DetectDiagramType(code string) DiagramType {
	line := firstMeaningfulLine(code)
	if line == "" {
		return TypeUnknown
	}

	line = strings.ToLower(line)
	for _, entry := range typeKeywords {
		for _, keyword := range entry.keywords {
			if strings.HasPrefix(line, keyword) {
				return entry.diagramType
			}
		}
	}
	return TypeUnknown
}

// firstMeaningfulLine returns the first line that is neither blank nor a
// Mermaid %% comment.
func firstMeaningfulLine(code string) string {
	for _, line := range strings.Split(code, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "%%") {
			continue
		}
		return line
	}
	return ""
}

// String returns the string representation of the diagram type
func (t DiagramType) String() string {
	return string(t)
}
