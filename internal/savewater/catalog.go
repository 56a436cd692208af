package savewater

// Check-in description catalog. Ids are fixed by the contract's enum.
var descriptions = map[uint32]string{
	1: "Turned off the tap while brushing",
	2: "Turned off the shower while soaping",
	3: "Ran a water-efficient laundry load",
	4: "Collected rainwater for the plants",
	5: "Other water-saving action",
}

func DescriptionLabel(id uint32) string {
	if label, ok := descriptions[id]; ok {
		return label
	}
	return "Unknown action"
}

func ValidDescription(id uint32) bool {
	_, ok := descriptions[id]
	return ok
}
