package school

import "strings"

// Stage groups courses into colour-coded bands for rosters and reports.
type Stage struct {
	Name   string `json:"name"`
	Colour string `json:"colour"`
}

var (
	StageInfant  = Stage{Name: "infantil", Colour: "#D1E9FF"}
	StageFirst   = Stage{Name: "primaria 1-2", Colour: "#D1FFD1"}
	StageSecond  = Stage{Name: "primaria 3-4", Colour: "#FFFFD1"}
	StageThird   = Stage{Name: "primaria 5-6", Colour: "#FFD1D1"}
	StageNeutral = Stage{Name: "otros", Colour: "#F0F2F6"}
)

// StageOf returns the stage a course name belongs to.
func StageOf(courseName string) Stage {
	name := strings.ToUpper(courseName)
	switch {
	case strings.Contains(name, "INF"), strings.Contains(name, "AÑOS"):
		return StageInfant
	case strings.Contains(name, "PRIMARIA"):
		switch {
		case strings.HasPrefix(name, "1"), strings.HasPrefix(name, "2"):
			return StageFirst
		case strings.HasPrefix(name, "3"), strings.HasPrefix(name, "4"):
			return StageSecond
		case strings.HasPrefix(name, "5"), strings.HasPrefix(name, "6"):
			return StageThird
		}
	}
	return StageNeutral
}
