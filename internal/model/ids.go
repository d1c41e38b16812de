package model

// PairSeparator joins a candidate and a requirement ID. Neither ID may
// contain it, so every pair maps to its own key.
const PairSeparator = "."

// PairID identifies the artifacts produced for one candidate and requirement.
func PairID(candidateID, requirementID string) string {
	return candidateID + PairSeparator + requirementID
}
