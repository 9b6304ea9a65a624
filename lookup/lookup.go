// Package lookup translates the numeric enum codes the RaceGrid API returns
// into human-readable labels. Pure static data, no behaviour.
package lookup

// Unknown is returned for any code without a table entry.
const Unknown = "unknown"

var vehicleClasses = map[int]string{
	1: "touring",
	2: "gt",
	3: "formula",
	4: "rally",
	5: "kart",
	6: "truck",
	7: "prototype",
}

var surfaces = map[int]string{
	1: "asphalt",
	2: "gravel",
	3: "dirt",
	4: "snow",
	5: "ice",
	6: "mixed",
}

var hostStatuses = map[int]string{
	0: "offline",
	1: "lobby",
	2: "practice",
	3: "qualifying",
	4: "race",
	5: "finished",
}

var gameModes = map[int]string{
	1: "race",
	2: "time trial",
	3: "drift",
	4: "elimination",
	5: "endurance",
}

var damageModels = map[int]string{
	0: "off",
	1: "visual",
	2: "reduced",
	3: "full",
}

func label(table map[int]string, code int) string {
	if name, ok := table[code]; ok {
		return name
	}
	return Unknown
}

// VehicleClass translates a vehicle_class code.
func VehicleClass(code int) string { return label(vehicleClasses, code) }

// Surface translates a surface code.
func Surface(code int) string { return label(surfaces, code) }

// HostStatus translates a host status code.
func HostStatus(code int) string { return label(hostStatuses, code) }

// GameMode translates a mode code.
func GameMode(code int) string { return label(gameModes, code) }

// DamageModel translates a damage model code.
func DamageModel(code int) string { return label(damageModels, code) }
