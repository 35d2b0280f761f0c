package domain

// Card is a single front/back/context entry as read from a deck source,
// before it is stored as an Item.
type Card struct {
	Front   string
	Back    string
	Context string
	Hash    string
}
