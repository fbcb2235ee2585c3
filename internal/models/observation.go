package models

import "time"

type ObservationKind string

const (
	KindText  ObservationKind = "text"
	KindImage ObservationKind = "image"
)

// Observation is a single fetch result for a target
type Observation struct {
	Kind ObservationKind
	Text string
	//PNG encoded screenshot
	Image  []byte
	Width  int
	Height int
	//Items are the raw item identifiers the fetcher could extract (job titles)
	Items     []string
	Method    string
	FetchedAt time.Time
}

// Fingerprint is the persisted, comparable form of an observation
type Fingerprint struct {
	Kind ObservationKind
	//Digest is the hex sha256 of the normalized text (text kind only)
	Digest string
	//Image holds the PNG bytes (image kind only)
	Image []byte
}

// Snapshot is what the judge compares: a fingerprint plus whatever of the
// observation is still around. A prior loaded from storage carries no Items.
type Snapshot struct {
	Fingerprint
	//Text is the normalized text (text kind only)
	Text  string
	Items []string
}

func (s *Snapshot) IsImage() bool {
	return s != nil && s.Kind == KindImage
}
