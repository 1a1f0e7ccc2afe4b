package domain

// Workshop is a repair shop an owner can send a request to.
type Workshop struct {
	ID            int64    `json:"id"`
	NameAr        string   `json:"nameAr"`
	NameEn        string   `json:"nameEn"`
	LocationAr    string   `json:"locationAr"`
	LocationEn    string   `json:"locationEn"`
	Rating        float64  `json:"rating"`
	Distance      float64  `json:"distance"`
	Image         string   `json:"image"`
	Lat           *float64 `json:"lat,omitempty"`
	Lng           *float64 `json:"lng,omitempty"`
	OwnerUsername string   `json:"ownerUsername,omitempty"`
}

// Default destination used when an owner picks neither a workshop nor a map point.
const (
	DefaultDestLat = 24.7136
	DefaultDestLng = 46.6753
)

// Coordinates returns the workshop position. Workshops without a stored
// position are spread around the default destination by id.
func (w *Workshop) Coordinates() (lat, lng float64) {
	lat = DefaultDestLat + float64(w.ID)*0.01
	lng = DefaultDestLng + float64(w.ID)*0.01
	if w.Lat != nil && *w.Lat != 0 {
		lat = *w.Lat
	}
	if w.Lng != nil && *w.Lng != 0 {
		lng = *w.Lng
	}
	return lat, lng
}

// DisplayName returns the name in the given language, English by default.
func (w *Workshop) DisplayName(lang string) string {
	if lang == "ar" && w.NameAr != "" {
		return w.NameAr
	}
	return w.NameEn
}
