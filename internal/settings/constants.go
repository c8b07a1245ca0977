package settings

// DB config keys and defaults for settings.
const (
	// SiteNameKey is the DB config key for the storefront name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback storefront name.
	DefaultSiteName = "Closet By Era"
	// GiftCardCodeAttemptsKey bounds generated-code retries on collision.
	GiftCardCodeAttemptsKey = "GIFT_CARD_CODE_ATTEMPTS"
	// DefaultGiftCardCodeAttempts is the fallback number of code generation attempts.
	DefaultGiftCardCodeAttempts = 5
	// GiftCardMaxBatchKey caps batch issuance size.
	GiftCardMaxBatchKey = "GIFT_CARD_MAX_BATCH"
	// DefaultGiftCardMaxBatch is the fallback batch cap.
	DefaultGiftCardMaxBatch = 1000
	// WebAuthnRPNameKey overrides the passkey relying party display name.
	WebAuthnRPNameKey = "WEB_AUTHN_RP_NAME"
	// WebAuthnRPIDKey overrides the passkey relying party id.
	WebAuthnRPIDKey = "WEB_AUTHN_RPID"
	// WebAuthnOriginsKey lists allowed passkey origins.
	WebAuthnOriginsKey = "WEB_AUTHN_ORIGINS"
	// WebAuthnOriginKey is the single-origin form of WebAuthnOriginsKey.
	WebAuthnOriginKey = "WEB_AUTHN_ORIGIN"
)

// Snapshot refresh tuning.
const (
	// RefreshIntervalKey sets how often, in seconds, the snapshot is reloaded from the database.
	RefreshIntervalKey = "SETTINGS_REFRESH_SECONDS"
	// DefaultRefreshInterval is the fallback reload period in seconds.
	DefaultRefreshInterval = 30
)
