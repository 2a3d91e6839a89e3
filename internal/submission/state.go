package submission

// State is the position of a run in the submission state machine.
type State int

const (
	StateIdle State = iota
	StateAddressPending
	StateEventPending
	StateBannerPending
	StateTicketsPending
	StateCustomFieldsPending
	StateFieldRelationsPending
	StateCouponsPending
	StateCouponRelationsPending
	StateSucceeded
	StateFailed
)

var stateNames = [...]string{
	StateIdle:                   "Idle",
	StateAddressPending:         "AddressPending",
	StateEventPending:           "EventPending",
	StateBannerPending:          "BannerPending",
	StateTicketsPending:         "TicketsPending",
	StateCustomFieldsPending:    "CustomFieldsPending",
	StateFieldRelationsPending:  "FieldRelationsPending",
	StateCouponsPending:         "CouponsPending",
	StateCouponRelationsPending: "CouponRelationsPending",
	StateSucceeded:              "Succeeded",
	StateFailed:                 "Failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "Unknown"
	}
	return stateNames[s]
}

