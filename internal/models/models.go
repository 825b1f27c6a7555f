package models

import "time"

// Slide is one image of the home page carousel
type Slide struct {
	ID        string    `json:"id"`
	Src       string    `json:"src"`
	Alt       string    `json:"alt"`
	CreatedAt time.Time `json:"created_at"`
}

// Page is an editable informational page identified by its slug
type Page struct {
	Slug      string    `json:"slug"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Event is a recurring weekly service or meeting
type Event struct {
	ID                  int64   `json:"id"`
	Title               string  `json:"title"`
	Day                 string  `json:"day"`
	Time                string  `json:"time"`
	Description         string  `json:"description"`
	DetailedDescription string  `json:"detailed_description"`
	ImageURL            *string `json:"image,omitempty"`
	LeaderName          string  `json:"leader_name"`
	LeaderRole          string  `json:"leader_role"`
}

// CalendarEvent is a one-off program on a specific date
type CalendarEvent struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	EventDate   time.Time `json:"event_date"`
	Time        string    `json:"time"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
}

// Message types accepted by the inbox
const (
	MessageTypePrayerRequest = "Prayer Request"
	MessageTypeTestimony     = "Testimony"
)

// Message is a prayer request or testimony submitted through the site.
// Version is assigned by the database and grows on every write.
type Message struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Body      string    `json:"message"`
	Type      string    `json:"type"`
	Read      bool      `json:"read"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Video references a YouTube video by its 11-character id
type Video struct {
	ID          string    `json:"id"`
	YouTubeID   string    `json:"youtube_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Album groups gallery photos. PhotoCount and CoverURL are derived on read.
type Album struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	AlbumDate   time.Time `json:"album_date"`
	PhotoCount  int       `json:"photo_count"`
	CoverURL    *string   `json:"cover_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Photo belongs to exactly one album
type Photo struct {
	ID        string    `json:"id"`
	AlbumID   string    `json:"album_id"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Leader is a church leader shown on the about page
type Leader struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Title       string    `json:"title"`
	ImageURL    *string   `json:"image_url,omitempty"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Profile holds dashboard user details. Its ID equals the auth user ID.
type Profile struct {
	ID          string    `json:"id"`
	FullName    string    `json:"full_name"`
	PhoneNumber string    `json:"phone_number"`
	Role        string    `json:"role"`
	PushToken   *string   `json:"push_token,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AuthUser is a credential record owned by the auth gateway
type AuthUser struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
