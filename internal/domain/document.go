package domain

// Document is a scored, titled, textual result produced by an action.
// Scores are action-specific: they rank documents within one result list
// and are not comparable across action kinds.
type Document struct {
	ID    string
	Title string
	Text  string
	Score float64
}

// ResultList is one action's ordered output. The emitting action's order is
// preserved verbatim all the way to the user.
type ResultList []Document
