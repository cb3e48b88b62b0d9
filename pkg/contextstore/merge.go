package contextstore

// ApplyDelta merges a preference delta into p. Callers use it to preview the
// merged view within a turn before the atomic write-back happens.
func ApplyDelta(p *Preferences, d PreferenceDelta) {
	mergePreferences(p, d)
}

// mergePreferences applies a delta to a preference record, field by field.
// Fields the delta does not set are left untouched; list fields append with
// de-duplication. Applying the same delta twice yields the same result as
// applying it once.
func mergePreferences(p *Preferences, d PreferenceDelta) {
	if d.HomeCity != nil {
		p.HomeCity = *d.HomeCity
	}
	if d.TravelStyle != nil {
		p.TravelStyle = *d.TravelStyle
	}
	if d.Budget != nil {
		p.Budget = *d.Budget
	}
	if d.Currency != nil {
		p.Currency = *d.Currency
	}
	p.Interests = appendUnique(p.Interests, d.Interests)
	p.Dietary = appendUnique(p.Dietary, d.Dietary)

	mergeFlight(&p.Flight, d.Flight)
	mergeHotel(&p.Hotel, d.Hotel)
}

func mergeFlight(p *FlightPreferences, d FlightDelta) {
	if d.CabinClass != nil {
		p.CabinClass = *d.CabinClass
	}
	switch {
	case d.ClearMaxStops:
		p.MaxStops = nil
	case d.MaxStops != nil:
		v := *d.MaxStops
		p.MaxStops = &v
	}
	p.PreferredAirlines = appendUnique(p.PreferredAirlines, d.PreferredAirlines)
	p.AvoidedAirlines = appendUnique(p.AvoidedAirlines, d.AvoidedAirlines)
	if d.DepartureWindow != nil {
		p.DepartureWindow = *d.DepartureWindow
	}
	if d.Seat != nil {
		p.Seat = *d.Seat
	}
	if d.Meal != nil {
		p.Meal = *d.Meal
	}
}

func mergeHotel(p *HotelPreferences, d HotelDelta) {
	if d.Chain != nil {
		p.Chain = *d.Chain
	}
	if d.MinStars != nil {
		p.MinStars = *d.MinStars
	}
	p.Amenities = appendUnique(p.Amenities, d.Amenities)
	if d.RoomType != nil {
		p.RoomType = *d.RoomType
	}
	if d.View != nil {
		p.View = *d.View
	}
	if d.NightlyBudget != nil {
		p.NightlyBudget = *d.NightlyBudget
	}
}

// appendUnique appends items not already present, preserving order.
func appendUnique(dst, items []string) []string {
	for _, item := range items {
		exists := false
		for _, have := range dst {
			if have == item {
				exists = true
				break
			}
		}
		if !exists {
			dst = append(dst, item)
		}
	}
	return dst
}

// truncateTurns keeps the most recent limit turns.
func truncateTurns(turns []Turn, limit int) []Turn {
	if limit <= 0 || len(turns) <= limit {
		return turns
	}
	return turns[len(turns)-limit:]
}

// truncateSearches keeps the most recent limit search records.
func truncateSearches(records []SearchRecord, limit int) []SearchRecord {
	if limit <= 0 || len(records) <= limit {
		return records
	}
	return records[len(records)-limit:]
}

// cloneContext returns a deep copy so callers can never alias store-owned state.
func cloneContext(c *Context) *Context {
	out := *c
	out.Preferences = clonePreferences(c.Preferences)
	out.SearchHistory = append([]SearchRecord(nil), c.SearchHistory...)
	out.History = append([]Turn(nil), c.History...)
	return &out
}

func clonePreferences(p Preferences) Preferences {
	out := p
	out.Interests = append([]string(nil), p.Interests...)
	out.Dietary = append([]string(nil), p.Dietary...)
	out.Flight.PreferredAirlines = append([]string(nil), p.Flight.PreferredAirlines...)
	out.Flight.AvoidedAirlines = append([]string(nil), p.Flight.AvoidedAirlines...)
	if p.Flight.MaxStops != nil {
		v := *p.Flight.MaxStops
		out.Flight.MaxStops = &v
	}
	out.Hotel.Amenities = append([]string(nil), p.Hotel.Amenities...)
	return out
}
