package seeders

var serviceTypesData = []struct {
	Name            string
	BasePrice       float64
	DurationMinutes int
}{
	{Name: "AC Repair", BasePrice: 89, DurationMinutes: 60},
	{Name: "AC Installation", BasePrice: 450, DurationMinutes: 240},
	{Name: "AC Maintenance", BasePrice: 79, DurationMinutes: 45},
	{Name: "Furnace Repair", BasePrice: 99, DurationMinutes: 60},
	{Name: "Furnace Tune-Up", BasePrice: 79, DurationMinutes: 45},
	{Name: "Heat Pump Service", BasePrice: 119, DurationMinutes: 90},
	{Name: "Duct Cleaning", BasePrice: 299, DurationMinutes: 180},
	{Name: "Thermostat Installation", BasePrice: 129, DurationMinutes: 60},
	{Name: "Water Heater Repair", BasePrice: 109, DurationMinutes: 90},
	{Name: "Emergency Service", BasePrice: 149, DurationMinutes: 60},
}

// techniciansData is only seeded with -demo. Login matches on digits, so any phone format works.
var techniciansData = []struct {
	Name           string
	Phone          string
	Email          string
	Specialization string
}{
	{Name: "Mike Smith", Phone: "(555) 000-1111", Email: "mike@example.com", Specialization: "HVAC"},
	{Name: "Carlos Rivera", Phone: "(555) 000-2222", Email: "carlos@example.com", Specialization: "Heating"},
	{Name: "Dana Lee", Phone: "(555) 000-3333", Email: "dana@example.com", Specialization: "Plumbing"},
}
