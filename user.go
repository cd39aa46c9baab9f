package magnetar

import "time"

// User is the slice of the platform account this engine touches: identity,
// the rating mirror and the active participation pointer.
type User struct {
	ID        int       `json:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	Name      string    `json:"name"`

	// Rating/Volatility mirror the user's chronologically newest Rating
	// row. nil = never rated.
	Rating     *int `json:"rating"`
	Volatility *int `json:"volatility"`

	// CurrentParticipationID points at the live participation the user is
	// actively in, if any. Disqualification clears it.
	CurrentParticipationID *int `json:"current_participation_id" db:"current_participation_id"`
}

func (u *User) Rated() bool {
	return u.Rating != nil
}

type UserFilter struct {
	ID   *int    `json:"id"`
	Name *string `json:"name"`

	IDs []int `json:"ids"`

	Rated *bool `json:"rated"`

	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type UserUpdate struct {
	Name *string `json:"name"`

	Rating     *int `json:"rating"`
	Volatility *int `json:"volatility"`
}
