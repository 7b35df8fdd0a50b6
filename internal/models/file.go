package models

// File is the unit of work tracked through the pipeline (spec.md §3).
// Stage is stored as the raw bit-flag value; CompletedTasks as a JSON
// array column via StringSet, grounded on the teacher's
// RelayProfileMapping.AcceptedVideoCodecs pattern.
type File struct {
	BaseModel

	Path  string `json:"path" gorm:"uniqueIndex;not null"`
	Stage uint32 `json:"stage" gorm:"not null;default:0;index"`

	CompletedTasks StringSet `json:"completed_tasks" gorm:"type:text;serializer:json"`

	ProcessedAt *Time `json:"processed_at,omitempty"`

	// Denormalized pointers to the enriched entities this file belongs to.
	// The parser task sets TrackID; no task sets AlbumID. Left as ULID FKs rather than
	// eager-loaded associations since the core never needs to traverse
	// them; only the external GraphQL API (out of scope) does.
	AlbumID  *ULID `json:"album_id,omitempty" gorm:"type:varchar(26);index"`
	TrackID  *ULID `json:"track_id,omitempty" gorm:"type:varchar(26);index"`
}

// TableName returns the table name for GORM.
func (File) TableName() string { return "files" }

// Track is a single logical recording; the parser task creates one per
// parsed File row.
type Track struct {
	BaseModel

	Title    string `json:"title" gorm:"not null"`
	Number   int    `json:"number"`
	AlbumID  *ULID  `json:"album_id,omitempty" gorm:"type:varchar(26);index"`
	MBID     string `json:"mbid,omitempty" gorm:"index"`
}

func (Track) TableName() string { return "tracks" }

// Album is a release entity enriched with metadata and, optionally,
// cover-art fetched by the art-getter task.
type Album struct {
	BaseModel

	Name    string `json:"name" gorm:"not null"`
	MBID    string `json:"mbid,omitempty" gorm:"uniqueIndex"`
	Picture *ULID  `json:"picture,omitempty" gorm:"type:varchar(26)"`
}

func (Album) TableName() string { return "albums" }

// Person is an artist or similarly credited individual/group.
type Person struct {
	BaseModel

	Name    string `json:"name" gorm:"not null"`
	MBID    string `json:"mbid,omitempty" gorm:"uniqueIndex"`
	Picture *ULID  `json:"picture,omitempty" gorm:"type:varchar(26)"`
}

func (Person) TableName() string { return "persons" }

// Label is a record label entity, also eligible for artwork lookup.
type Label struct {
	BaseModel

	Name    string `json:"name" gorm:"not null"`
	MBID    string `json:"mbid,omitempty" gorm:"uniqueIndex"`
	Picture *ULID  `json:"picture,omitempty" gorm:"type:varchar(26)"`
}

func (Label) TableName() string { return "labels" }

// Picture stores fetched artwork binary data out-of-line from the entity
// that references it.
type Picture struct {
	BaseModel

	Data     []byte `json:"-" gorm:"type:blob"`
	MimeType string `json:"mime_type"`
}

func (Picture) TableName() string { return "pictures" }

// Queue documents the Queue.track_ids array-valued column mentioned in
// spec.md §6 for completeness; it is not otherwise core-scoped.
type Queue struct {
	BaseModel

	Name     string  `json:"name" gorm:"uniqueIndex;not null"`
	TrackIDs []int64 `json:"track_ids" gorm:"type:text;serializer:json"`
}

func (Queue) TableName() string { return "queues" }
