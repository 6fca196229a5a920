// Package model contains domain models passed between layers.
package model

// Score bounds accepted for a record.
const (
	MinScore = 0
	MaxScore = 999_999
)

// DateLayout is the calendar-date form stored on every record.
const DateLayout = "2006-01-02"

// ScoreRecord is one stored score. The ID is assigned by the record store
// and is not part of the persisted payload.
type ScoreRecord struct {
	ID        string `json:"id"`
	Game      string `json:"game"`
	Score     int    `json:"score"`
	Date      string `json:"date"`
	UserID    string `json:"userId"`
	GameImage string `json:"gameImage,omitempty"`
}

// Payload is the persisted record shape. Field names are fixed for
// compatibility with existing stored data.
type Payload struct {
	Game      string `json:"game"`
	Score     int    `json:"score"`
	Date      string `json:"date"`
	UserID    string `json:"userId"`
	GameImage string `json:"gameImage,omitempty"`
}

// WithID returns the record the store holds for p under id.
func (p Payload) WithID(id string) ScoreRecord {
	return ScoreRecord{
		ID:        id,
		Game:      p.Game,
		Score:     p.Score,
		Date:      p.Date,
		UserID:    p.UserID,
		GameImage: p.GameImage,
	}
}

// Statistics is derived from a record set and never persisted.
type Statistics struct {
	TotalScore     int64   `json:"totalScore"`
	HighestScore   int     `json:"highestScore"`
	AverageScore   float64 `json:"averageScore"`
	TotalGames     int     `json:"totalGames"`
	MostPlayedGame string  `json:"mostPlayedGame"`
}

// GameCatalogEntry is a read-only catalog item.
type GameCatalogEntry struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	ImageURI  string   `json:"image"`
	Price     float64  `json:"price"`
	Platforms []string `json:"platforms"`
}
