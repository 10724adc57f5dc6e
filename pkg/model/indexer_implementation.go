package model

type indexerImplementation struct {
	days      uint64
	timeslots uint64
	rooms     uint64
}

func (indexer *indexerImplementation) Index(day, timeslot, room uint64) uint64 {
	return day + indexer.days*timeslot + indexer.days*indexer.timeslots*room
}

func (indexer *indexerImplementation) Attributes(index uint64) (day, timeslot, room uint64) {
	day = index % indexer.days
	index = index / indexer.days

	timeslot = index % indexer.timeslots
	index = index / indexer.timeslots

	room = index % indexer.rooms

	return day, timeslot, room
}

func (indexer *indexerImplementation) Size() uint64 {
	return indexer.days * indexer.timeslots * indexer.rooms
}
