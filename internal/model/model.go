// Package model defines domain entities used by services and repositories.
package model

import (
	"time"

	"github.com/gofrs/uuid/v5"
)

// Tenant is the isolation boundary. Every business row carries its id.
type Tenant struct {
	ID        uuid.UUID // PK
	Name      string
	CreatedAt time.Time
}

// Provider identifies a third-party integration backing an account.
type Provider string

// Supported providers.
const (
	ProviderGoogle    Provider = "google"
	ProviderMicrosoft Provider = "microsoft"
)

// AuthAccount is a linked provider account. Token columns hold sealed
// envelopes produced by the vault, never plaintext.
type AuthAccount struct {
	ID              uuid.UUID
	TenantID        uuid.UUID // FK -> tenants.id
	Provider        Provider
	Email           string
	RefreshTokenEnc string // encoded envelope
	AccessTokenEnc  string // encoded envelope
	KeyID           string // encryption key that protects the envelopes
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Mailbox is a watched provider mailbox tied to an auth account.
type Mailbox struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	AccountID      uuid.UUID // FK -> auth_accounts.id
	Address        string
	AccessTokenEnc string // encoded envelope
	KeyID          string
	HistoryID      string // provider sync cursor
	WatchExpiresAt time.Time
	CreatedAt      time.Time
}

// RoutingRule routes classified messages; evaluation lives outside this core.
type RoutingRule struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	Matcher   []byte // JSON matcher document
	Action    string
	Priority  int
	Enabled   bool
	CreatedAt time.Time
}

// Message is a tenant-scoped record of a processed provider message.
type Message struct {
	ID                uuid.UUID
	TenantID          uuid.UUID
	MailboxID         uuid.UUID
	ProviderMessageID string
	Classification    string
	ReceivedAt        time.Time
	CreatedAt         time.Time
}

// Tasklist mirrors a provider task list selected for routing targets.
type Tasklist struct {
	ID             uuid.UUID
	TenantID       uuid.UUID
	ProviderListID string
	Title          string
	CreatedAt      time.Time
}

// OnboardingSession tracks a tenant's setup flow between requests.
type OnboardingSession struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Step      string
	State     []byte // JSON state document
	ExpiresAt time.Time
	CreatedAt time.Time
}

// ActivityEntry is an append-only audit record subject to retention.
type ActivityEntry struct {
	ID        int64
	TenantID  uuid.UUID
	Actor     string
	Action    string
	Detail    []byte // JSON detail document
	CreatedAt time.Time
}
