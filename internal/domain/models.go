// Package domain defines the persistence models for leads, campaigns,
// routes, users, and usage counters. These types are mapped with GORM and
// form the core data layer of the lead distribution backend.
package domain

import (
	"encoding/json"
	"time"
)

// Lead represents one inbound submission from an affiliate. A lead is
// created exactly once per accepted submission (duplicates included; they
// are persisted with StatusDuplicate, never discarded) and is updated at
// most once more, by the webhook dispatcher attaching its result.
//
// Fields:
//   - ID: stable UUID primary key (char(36)).
//   - FirstName / LastName: split from the submitted "name" field.
//   - Phone: digits-only, normalized before persistence and before any
//     duplicate lookup; indexed together with CampaignID.
//   - Email / Address / IP / Country: optional contact metadata; Country is
//     geolocated best-effort ("Unknown" when unresolvable).
//   - Sub1..Sub4: free-form campaign-supplied passthrough fields.
//   - Status: one of the LeadStatus enum values.
//   - WebhookResponse: raw downstream payload or a structured error blob,
//     attached asynchronously after dispatch; nil until then.
//   - UserID / CampaignID / RouteID / OrganizationID: attribution keys,
//     resolved at submission time and never revalidated afterwards.
type Lead struct {
	ID              string     `json:"id"              gorm:"type:char(36);primaryKey"`
	FirstName       string     `json:"firstName"       gorm:"type:varchar(128);not null"`
	LastName        string     `json:"lastName"        gorm:"type:varchar(128)"`
	Phone           string     `json:"phone"           gorm:"type:varchar(32);not null;index:idx_leads_phone_campaign,priority:1"`
	Email           string     `json:"email"           gorm:"type:varchar(255)"`
	Address         string     `json:"address"         gorm:"type:varchar(255)"`
	IP              string     `json:"ip"              gorm:"type:varchar(64)"`
	Country         string     `json:"country"         gorm:"type:varchar(64)"`
	Sub1            string     `json:"sub1"            gorm:"type:varchar(255)"`
	Sub2            string     `json:"sub2"            gorm:"type:varchar(255)"`
	Sub3            string     `json:"sub3"            gorm:"type:varchar(255)"`
	Sub4            string     `json:"sub4"            gorm:"type:varchar(255)"`
	Status          LeadStatus `json:"status"          gorm:"type:varchar(16);not null;index"`
	WebhookResponse *string    `json:"webhookResponse" gorm:"type:text"`
	UserID          string     `json:"user_id"         gorm:"type:char(36);not null;index"`
	CampaignID      string     `json:"campaign_id"     gorm:"type:char(36);not null;index:idx_leads_phone_campaign,priority:2"`
	RouteID         string     `json:"route_id"        gorm:"type:char(36);not null"`
	OrganizationID  string     `json:"organization_id" gorm:"type:char(36);index"`
	CreatedAt       time.Time  `json:"created_at"      gorm:"index"`
	UpdatedAt       time.Time  `json:"updated_at"`

	Campaign Campaign `json:"-" gorm:"foreignKey:CampaignID;references:ID"`
}

// TableName returns the database table name for Lead.
func (Lead) TableName() string { return "leads" }

// Campaign is a named lead funnel owned by a user, bound to exactly one
// Route. CampID is the short external identifier API clients submit instead
// of the internal UUID; (user_id, camp_id) is unique so an (apiKey, campId)
// pair resolves to at most one campaign.
//
// LeadPeriod is the dedup lookback window in days. Only a strictly positive
// value bounds the window; zero means any historical phone match counts as
// a duplicate regardless of age.
type Campaign struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	Name           string    `json:"name"            gorm:"type:varchar(255);not null"`
	CampID         string    `json:"campId"          gorm:"type:varchar(64);not null;uniqueIndex:ux_campaigns_user_camp,priority:2"`
	LeadPeriod     int       `json:"lead_period"`
	UserID         string    `json:"user_id"         gorm:"type:char(36);not null;uniqueIndex:ux_campaigns_user_camp,priority:1"`
	RouteID        string    `json:"route_id"        gorm:"type:char(36);not null"`
	OrganizationID string    `json:"organization_id" gorm:"type:char(36);index"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Route Route `json:"route" gorm:"foreignKey:RouteID;references:ID"`
}

// TableName returns the database table name for Campaign.
func (Campaign) TableName() string { return "campaigns" }

// Route is a downstream buyer endpoint: the webhook URL/method plus the
// ordered attribute descriptors that shape the outgoing call. The attribute
// list is the only contract between a route and its webhook payload.
type Route struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	Name           string    `json:"name"            gorm:"type:varchar(255);not null"`
	URL            string    `json:"url"             gorm:"type:varchar(2048)"`
	Method         string    `json:"method"          gorm:"type:varchar(8)"`
	HasWebhook     bool      `json:"hasWebhook"`
	Payout         float64   `json:"payout"`
	OrganizationID string    `json:"organization_id" gorm:"type:char(36);index"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Attributes []RouteAttribute `json:"attributes" gorm:"foreignKey:RouteID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Route.
func (Route) TableName() string { return "routes" }

// Attribute descriptor types.
const (
	AttributeBody   = "body"
	AttributeHeader = "header"
)

// RouteAttribute is one mapping descriptor of a route's webhook contract:
// {type, param, value, isCustom}. Position preserves descriptor order, which
// decides the winner on outgoing key collisions (last write wins).
type RouteAttribute struct {
	ID       string `json:"id"       gorm:"type:char(36);primaryKey"`
	RouteID  string `json:"route_id" gorm:"type:char(36);not null;index"`
	Type     string `json:"type"     gorm:"type:varchar(8);not null;check:type IN ('body','header')"`
	Param    string `json:"param"    gorm:"type:varchar(128);not null"`
	Value    string `json:"value"    gorm:"type:varchar(512)"`
	IsCustom bool   `json:"isCustom"`
	Position int    `json:"position"`
}

// TableName returns the database table name for RouteAttribute.
func (RouteAttribute) TableName() string { return "route_attributes" }

// User is an affiliate (webmaster/seller) account. APIKey is the bearer
// credential for the ingestion API; the associated plan carries the daily
// lead quota.
type User struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	Email          string    `json:"email"           gorm:"type:varchar(255)"`
	Role           string    `json:"role"            gorm:"type:varchar(32)"`
	APIKey         string    `json:"-"               gorm:"column:api_key;type:varchar(64);uniqueIndex"`
	OrganizationID string    `json:"organization_id" gorm:"type:char(36);index"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Plan *UserPlan `json:"plan,omitempty" gorm:"foreignKey:UserID;references:ID"`
}

// TableName returns the database table name for User.
func (User) TableName() string { return "users" }

// UserPlan carries per-user quota settings. A DailyLeadsLimit of zero means
// unlimited.
type UserPlan struct {
	ID              string    `json:"id"              gorm:"type:char(36);primaryKey"`
	UserID          string    `json:"user_id"         gorm:"type:char(36);not null;uniqueIndex"`
	Name            string    `json:"name"            gorm:"type:varchar(64)"`
	DailyLeadsLimit int       `json:"dailyLeadsLimit"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName returns the database table name for UserPlan.
func (UserPlan) TableName() string { return "user_plans" }

// LeadUsage holds the per-user, per-UTC-day accepted lead counter. Exactly
// one row exists per (user_id, date); rows are created lazily on the first
// lead of the day and incremented atomically, never decremented.
type LeadUsage struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	UserID         string    `json:"user_id"         gorm:"type:char(36);not null;uniqueIndex:ux_lead_usage_user_date,priority:1"`
	Date           time.Time `json:"date"            gorm:"not null;uniqueIndex:ux_lead_usage_user_date,priority:2"`
	Count          int       `json:"count"           gorm:"not null;default:0"`
	OrganizationID string    `json:"organization_id" gorm:"type:char(36);index"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for LeadUsage.
func (LeadUsage) TableName() string { return "lead_usage" }

// Organization groups users for multi-tenant dashboard access.
type Organization struct {
	ID        string    `json:"id"         gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name"       gorm:"type:varchar(255);not null"`
	OwnerID   string    `json:"owner_id"   gorm:"type:char(36);not null;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for Organization.
func (Organization) TableName() string { return "organizations" }

// Role names a set of boolean capabilities within an organization.
// Permissions is a JSON object of named booleans, e.g.
// {"viewLeads": true, "manageRoutes": false}.
type Role struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	OrganizationID string    `json:"organization_id" gorm:"type:char(36);not null;index"`
	Name           string    `json:"name"            gorm:"type:varchar(64);not null"`
	Permissions    string    `json:"permissions"     gorm:"type:text"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName returns the database table name for Role.
func (Role) TableName() string { return "roles" }

// Can reports whether the role grants the named permission. Malformed or
// empty permission blobs grant nothing.
func (r Role) Can(permission string) bool {
	if r.Permissions == "" {
		return false
	}
	var perms map[string]bool
	if err := json.Unmarshal([]byte(r.Permissions), &perms); err != nil {
		return false
	}
	return perms[permission]
}

// Membership statuses.
const (
	MembershipActive   = "active"
	MembershipInactive = "inactive"
)

// OrganizationMember links a user to an organization with a role. Only
// members with MembershipActive status pass the access gate.
type OrganizationMember struct {
	ID             string    `json:"id"              gorm:"type:char(36);primaryKey"`
	OrganizationID string    `json:"organization_id" gorm:"type:char(36);not null;uniqueIndex:ux_org_members,priority:1"`
	UserID         string    `json:"user_id"         gorm:"type:char(36);not null;uniqueIndex:ux_org_members,priority:2"`
	RoleID         string    `json:"role_id"         gorm:"type:char(36);not null"`
	Status         string    `json:"status"          gorm:"type:varchar(16);not null;default:'active'"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	Role Role `json:"role" gorm:"foreignKey:RoleID;references:ID"`
}

// TableName returns the database table name for OrganizationMember.
func (OrganizationMember) TableName() string { return "organization_members" }
