package domain

// Hotel groups rooms under an owner.
type Hotel struct {
	ID      string
	Name    string
	Address string
	OwnerID string
}

// Room is a bookable unit. PriceCents is the nightly rate in minor
// currency units; it is captured into a reservation at hold time.
type Room struct {
	ID         string
	HotelID    string
	Name       string
	Capacity   int
	PriceCents int64
}
