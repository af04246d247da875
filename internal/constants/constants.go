package constants

// User roles
const (
	RoleAdmin    = "admin"
	RoleReadonly = "readonly"
)

// Audit actions
const (
	ActionLogin          = "login"
	ActionLoginFailed    = "login.failed"
	ActionAccountLocked  = "account.locked"
	ActionLogout         = "logout"
	ActionAuthFailed     = "auth.failed"
	ActionForbidden      = "forbidden"
	ActionBadgeRefresh   = "badge.refresh"
	ActionSeenMark       = "seen.mark"
	ActionSettingsUpdate = "settings.update"
	ActionPasswordReset  = "password.reset"
	ActionPasswordChange = "password.change"
	ActionUserCreate     = "user.create"
	ActionUserDelete     = "user.delete"
)

// Entity kinds handled by the review pages and the mark-seen endpoints.
const (
	EntityUser         = "user"
	EntitySeller       = "seller"
	EntityProduct      = "product"
	EntityOrder        = "order"
	EntityPayment      = "payment"
	EntityTicket       = "ticket"
	EntityNotification = "notification"
)

// Product statuses as stored by the marketplace.
const (
	ProductPending  = "pending"
	ProductApproved = "approved"
)

// WebSocket channels and message types
const (
	ChannelBadges      = "badges"
	MsgBadgesUpdated   = "badges.updated"
	MsgBadgesRefreshed = "badges.refreshed"
)
