package scheduler

// ResourceKind identifies the category of a bookable resource.
type ResourceKind string

const (
	// ResourceKindRoom is a meeting or conference room.
	ResourceKindRoom ResourceKind = "room"
	// ResourceKindVehicle is a company vehicle.
	ResourceKindVehicle ResourceKind = "vehicle"
	// ResourceKindSampleEquipment is sample-production equipment.
	ResourceKindSampleEquipment ResourceKind = "sample-equipment"
)

// ResourceRef identifies one bookable resource unit.
type ResourceRef struct {
	Kind ResourceKind
	ID   string
}

// Booking is the projection of a booking used for conflict detection.
type Booking struct {
	ID           string
	Participants []string
	Resources    []ResourceRef
	Window       TimeWindow
}

// ConflictType describes why two bookings conflict.
type ConflictType string

const (
	// ConflictTypeParticipant indicates a participant is double-booked.
	ConflictTypeParticipant ConflictType = "participant"
	// ConflictTypeResource indicates a resource unit is double-booked.
	ConflictTypeResource ConflictType = "resource"
)

// Conflict details an overlapping booking relation that callers can present to
// users. One conflicting booking may yield several entries, one per shared
// participant or resource.
type Conflict struct {
	WithBookingID string
	Type          ConflictType
	Participant   string
	Resource      *ResourceRef
}

// DetectConflicts identifies every conflict between the candidate and the
// existing bookings. A booking conflicts when its window overlaps the
// candidate's and it shares at least one participant or one identical resource
// ref. The booking identified by excludeID is skipped so in-place edits do not
// conflict with themselves. Touching windows never conflict.
func DetectConflicts(existing []Booking, candidate Booking, excludeID string) []Conflict {
	if !candidate.Window.IsValid() {
		return nil
	}

	participantSet := make(map[string]struct{}, len(candidate.Participants))
	for _, id := range candidate.Participants {
		participantSet[id] = struct{}{}
	}
	resourceSet := make(map[ResourceRef]struct{}, len(candidate.Resources))
	for _, ref := range candidate.Resources {
		resourceSet[ref] = struct{}{}
	}

	var conflicts []Conflict
	for _, other := range existing {
		if other.ID == candidate.ID || (excludeID != "" && other.ID == excludeID) {
			continue
		}
		if !candidate.Window.Overlaps(other.Window) {
			continue
		}

		for _, participant := range other.Participants {
			if _, ok := participantSet[participant]; ok {
				conflicts = append(conflicts, Conflict{
					WithBookingID: other.ID,
					Type:          ConflictTypeParticipant,
					Participant:   participant,
				})
			}
		}

		for _, ref := range other.Resources {
			if _, ok := resourceSet[ref]; ok {
				shared := ref
				conflicts = append(conflicts, Conflict{
					WithBookingID: other.ID,
					Type:          ConflictTypeResource,
					Resource:      &shared,
				})
			}
		}
	}

	return conflicts
}
