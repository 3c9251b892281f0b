// internal/models/lookup.go
package models

import "time"

// CachedLookup is a name-keyed blob fetched from the case system and cached
// locally. Handlers read it synchronously; a daily job refreshes it.
type CachedLookup struct {
	Name      string    `json:"name"` // e.g. "decision_makers", "signers"
	Payload   []byte    `json:"payload"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// LookupEntry is one item of a decision-maker or signer list.
type LookupEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
