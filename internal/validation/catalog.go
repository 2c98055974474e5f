// Package validation turns a booking type tag and a raw field bag into a
// normalized payload or a deterministic list of per-field errors.  It is
// pure: no storage, no clock of its own (callers pass "now" in).
package validation

// MuseumsByState is the fixed museum catalog keyed by state.  Selecting a
// state first constrains the valid museum choices, so a museum value is only
// accepted when it belongs to the submitted state's list.
var MuseumsByState = map[string][]string{
    "california": {"national", "art", "science"},
    "new-york":   {"national", "art", "history"},
    "texas":      {"history", "science"},
    "illinois":   {"national", "art", "history", "science"},
}

// LibraryPurposes is the fixed set of valid library booking purposes.
var LibraryPurposes = []string{"study", "research", "meeting"}

// SportsFacilities is the fixed set of bookable sports facilities.
var SportsFacilities = []string{"tennis", "basketball", "swimming", "gym"}

// MovieScreens is the fixed set of screen selectors.
var MovieScreens = []string{"1", "2", "3"}

// EventCategories is the fixed set of ticket categories.
var EventCategories = []string{"vip", "premium", "standard"}

func inSet(set []string, v string) bool {
    for _, s := range set {
        if s == v {
            return true
        }
    }
    return false
}
