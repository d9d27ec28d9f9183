package model

// User is the authenticated principal's profile as returned by the news API.
type User struct {
	ID          int64
	Email       string
	FullName    string
	IsActive    bool
	IsSuperuser bool
}
