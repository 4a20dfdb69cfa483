package models

import "time"

// User represents a user in the system.
// The ID is the Firebase Auth UID (anonymous or email-based) and is the
// durable identity used as authorId/participant key everywhere. User
// documents are never mutated after creation; they are destroyed only on
// explicit sign-out/account deletion.
type User struct {
	ID          string    `json:"id" firestore:"-"` // Firebase Auth UID, will be the document ID
	AnonymousID string    `json:"anonymousId" firestore:"anonymousId"`
	CreatedAt   time.Time `json:"createdAt" firestore:"createdAt,serverTimestamp"`
}
