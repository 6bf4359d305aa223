package models

// TerminologyKey selects the wording used for the local unit.
type TerminologyKey string

const (
	TerminologyWard   TerminologyKey = "ward"
	TerminologyBranch TerminologyKey = "branch"
)

// Terminology holds the labels shown for a unit type.
type Terminology struct {
	Key    TerminologyKey `json:"key"`
	Unit   string         `json:"unit"`
	Leader string         `json:"leader"`
}

var terminologies = map[TerminologyKey]Terminology{
	TerminologyWard:   {Key: TerminologyWard, Unit: "Ward", Leader: "Bishop"},
	TerminologyBranch: {Key: TerminologyBranch, Unit: "Branch", Leader: "Branch President"},
}

// LookupTerminology returns the labels for key, falling back to ward wording.
func LookupTerminology(key string) Terminology {
	if t, ok := terminologies[TerminologyKey(key)]; ok {
		return t
	}
	return terminologies[TerminologyWard]
}
