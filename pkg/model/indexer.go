package model

// indexer interface is design to give a unique index to a placement's attributes and vice versa
type indexer interface {
	// Returns a unique index to a combination of placement attributes
	Index(day, timeslot, room uint64) uint64
	// Returns a combination of placement attributes from a unique index
	Attributes(index uint64) (day uint64, timeslot uint64, room uint64)
	// Returns the number of distinct indices
	Size() uint64
}

func newIndexer(days, timeslots, rooms uint64) indexer {
	return &indexerImplementation{
		days:      days,
		timeslots: timeslots,
		rooms:     rooms,
	}
}
