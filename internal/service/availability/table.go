package availability

import (
	"sort"

	"cloud.google.com/go/civil"

	"github.com/jwalitptl/clinic-portal/internal/model"
)

// DoctorSlot is one doctor offering one availability record at a time of day.
type DoctorSlot struct {
	AvailabilityID model.ID `json:"availability_id"`
	DoctorID       model.ID `json:"doctor_id"`
	DoctorName     string   `json:"doctor_name"`
	Specialization string   `json:"specialization"`
	LicenseNumber  string   `json:"license_number"`
}

// Table maps "HH:MM" to the doctors offering that time on one date for one
// specialization.
type Table struct {
	Specialization string                  `json:"specialization"`
	Date           civil.Date              `json:"date"`
	Slots          map[string][]DoctorSlot `json:"slots"`
}

func newTable(specialization string, date civil.Date) *Table {
	return &Table{
		Specialization: specialization,
		Date:           date,
		Slots:          map[string][]DoctorSlot{},
	}
}

// Times returns the offered times in ascending order.
func (t *Table) Times() []string {
	times := make([]string, 0, len(t.Slots))
	for k := range t.Slots {
		times = append(times, k)
	}
	sort.Strings(times)
	return times
}

// Doctors returns the doctors offering the given time.
func (t *Table) Doctors(at string) []DoctorSlot {
	return t.Slots[at]
}

// Lookup resolves the availability record of one doctor at one time.
func (t *Table) Lookup(at string, doctorID model.ID) (DoctorSlot, bool) {
	for _, s := range t.Slots[at] {
		if s.DoctorID == doctorID {
			return s, true
		}
	}
	return DoctorSlot{}, false
}

// Matches reports whether the table was built for this selection.
func (t *Table) Matches(specialization string, date civil.Date) bool {
	return t != nil && t.Specialization == specialization && t.Date == date
}

func (t *Table) Empty() bool { return len(t.Slots) == 0 }

func (t *Table) add(at string, slot DoctorSlot) {
	t.Slots[at] = append(t.Slots[at], slot)
}

// normalize sorts each list and keeps one record per doctor per time.
func (t *Table) normalize() {
	for at, list := range t.Slots {
		sort.Slice(list, func(i, j int) bool {
			a, b := list[i], list[j]
			if a.DoctorName != b.DoctorName {
				return a.DoctorName < b.DoctorName
			}
			if a.DoctorID != b.DoctorID {
				return lessID(a.DoctorID, b.DoctorID)
			}
			return lessID(a.AvailabilityID, b.AvailabilityID)
		})
		deduped := make([]DoctorSlot, 0, len(list))
		for _, s := range list {
			if n := len(deduped); n > 0 && deduped[n-1].DoctorID == s.DoctorID {
				continue
			}
			deduped = append(deduped, s)
		}
		t.Slots[at] = deduped
	}
}

// lessID orders numeric ids numerically and everything else lexically.
func lessID(a, b model.ID) bool {
	if len(a) != len(b) && isDigits(string(a)) && isDigits(string(b)) {
		return len(a) < len(b)
	}
	return a < b
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
