package handlers

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/closetbyera/giftledger/internal/mfa"
	"github.com/closetbyera/giftledger/internal/models"
	"github.com/closetbyera/giftledger/internal/security"
	"github.com/closetbyera/giftledger/internal/settings"
	"github.com/gin-gonic/gin"
	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/pquerna/otp/totp"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// MFAHandler handles MFA enrollment endpoints for staff.
type MFAHandler struct {
	db         *gorm.DB
	challenges *mfa.Challenges
}

// NewMFAHandler constructs an MFAHandler.
func NewMFAHandler(db *gorm.DB, challenges *mfa.Challenges) *MFAHandler {
	return &MFAHandler{db: db, challenges: challenges}
}

// loadWebAuthn loads WebAuthn configuration from the settings snapshot.
func loadWebAuthn() (*webauthn.WebAuthn, error) {
	return security.NewWebAuthn()
}

// staffWebAuthnUser adapts a staff account to WebAuthn interfaces.
type staffWebAuthnUser struct {
	id          uint64
	email       string
	name        string
	credentials []webauthn.Credential
}

// WebAuthnID returns the customer ID as a byte slice.
func (u staffWebAuthnUser) WebAuthnID() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, u.id)
	return buf
}

// WebAuthnName returns the login email.
func (u staffWebAuthnUser) WebAuthnName() string {
	return u.email
}

// WebAuthnDisplayName prefers the profile name.
func (u staffWebAuthnUser) WebAuthnDisplayName() string {
	if u.name != "" {
		return u.name
	}
	return u.email
}

// WebAuthnCredentials returns registered credentials.
func (u staffWebAuthnUser) WebAuthnCredentials() []webauthn.Credential {
	return u.credentials
}

// newStaffWebAuthnUser builds a WebAuthn adapter from a customer row.
func newStaffWebAuthnUser(staff models.Customer) staffWebAuthnUser {
	user := staffWebAuthnUser{
		id:    staff.ID,
		email: staff.Email,
		name:  staff.Name,
	}
	if len(staff.PasskeyID) > 0 && len(staff.PasskeyPublicKey) > 0 {
		signCount := uint32(0)
		if staff.PasskeySignCount != nil {
			signCount = *staff.PasskeySignCount
		}
		flags := webauthn.CredentialFlags{}
		if staff.PasskeyBackupEligible != nil {
			flags.BackupEligible = *staff.PasskeyBackupEligible
		}
		if staff.PasskeyBackupState != nil {
			flags.BackupState = *staff.PasskeyBackupState
		}
		user.credentials = []webauthn.Credential{
			{
				ID:        staff.PasskeyID,
				PublicKey: staff.PasskeyPublicKey,
				Flags:     flags,
				Authenticator: webauthn.Authenticator{
					SignCount: signCount,
				},
			},
		}
	}
	return user
}

// loadStaff loads the authenticated staff member or writes an error response.
func (h *MFAHandler) loadStaff(c *gin.Context, columns ...string) (models.Customer, bool) {
	adminID, ok := readAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
		return models.Customer{}, false
	}
	var staff models.Customer
	q := h.db.WithContext(c.Request.Context())
	if len(columns) > 0 {
		q = q.Select(columns)
	}
	if errFind := q.First(&staff, adminID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return models.Customer{}, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return models.Customer{}, false
	}
	return staff, true
}

// Status returns MFA enablement status for the caller.
func (h *MFAHandler) Status(c *gin.Context) {
	staff, ok := h.loadStaff(c, "id", "totp_secret", "passkey_id", "passkey_public_key")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"totp_enabled":    strings.TrimSpace(staff.TOTPSecret) != "",
		"passkey_enabled": len(staff.PasskeyID) > 0 && len(staff.PasskeyPublicKey) > 0,
	})
}

// PrepareTOTP generates a new TOTP secret and QR code.
func (h *MFAHandler) PrepareTOTP(c *gin.Context) {
	staff, ok := h.loadStaff(c, "id", "email")
	if !ok {
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      settings.StringOr(settings.SiteNameKey, settings.DefaultSiteName),
		AccountName: staff.Email,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "generate totp secret failed"})
		return
	}

	if errPut := h.challenges.PutPendingTOTP(c.Request.Context(), staff.ID, key.Secret()); errPut != nil {
		log.WithError(errPut).Error("store pending totp secret failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "mfa store unavailable"})
		return
	}
	qrImage := ""
	if img, errImage := key.Image(220, 220); errImage == nil {
		var buf bytes.Buffer
		if errEncode := png.Encode(&buf, img); errEncode == nil {
			qrImage = "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"secret":      key.Secret(),
		"otpauth_url": key.URL(),
		"qr_image":    qrImage,
	})
}

// totpConfirmRequest defines the request body for confirming TOTP.
type totpConfirmRequest struct {
	Code string `json:"code"`
}

// ConfirmTOTP validates the pending secret and enables TOTP.
func (h *MFAHandler) ConfirmTOTP(c *gin.Context) {
	adminID, ok := readAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
		return
	}
	var body totpConfirmRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	code := strings.TrimSpace(body.Code)
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing code"})
		return
	}

	ctx := c.Request.Context()
	secret, found, errGet := h.challenges.PendingTOTP(ctx, adminID)
	if errGet != nil {
		log.WithError(errGet).Error("load pending totp secret failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "mfa store unavailable"})
		return
	}
	if !found {
		c.JSON(http.StatusBadRequest, gin.H{"error": "totp setup expired"})
		return
	}
	if !totp.Validate(code, secret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}

	if errUpdate := h.db.WithContext(ctx).Model(&models.Customer{}).
		Where("id = ?", adminID).
		Updates(map[string]any{"totp_secret": secret, "updated_at": time.Now().UTC()}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	if errDrop := h.challenges.DropPendingTOTP(ctx, adminID); errDrop != nil {
		log.WithError(errDrop).WithField("admin_id", adminID).Warn("drop pending totp secret failed")
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DisableTOTP removes the caller's TOTP secret.
func (h *MFAHandler) DisableTOTP(c *gin.Context) {
	adminID, ok := readAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Customer{}).
		Where("id = ?", adminID).
		Updates(map[string]any{
			"totp_secret": "",
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if errDrop := h.challenges.DropPendingTOTP(c.Request.Context(), adminID); errDrop != nil {
		log.WithError(errDrop).WithField("admin_id", adminID).Warn("drop pending totp secret failed")
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// DisablePasskey removes the caller's passkey credentials.
func (h *MFAHandler) DisablePasskey(c *gin.Context) {
	adminID, ok := readAdminIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
		return
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Customer{}).
		Where("id = ?", adminID).
		Updates(map[string]any{
			"passkey_id":              nil,
			"passkey_public_key":      nil,
			"passkey_sign_count":      nil,
			"passkey_backup_eligible": nil,
			"passkey_backup_state":    nil,
			"updated_at":              time.Now().UTC(),
		})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	if errDrop := h.challenges.DropRegistration(c.Request.Context(), adminID); errDrop != nil {
		log.WithError(errDrop).WithField("admin_id", adminID).Warn("drop passkey registration failed")
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// BeginPasskeyRegistration starts a passkey registration ceremony.
func (h *MFAHandler) BeginPasskeyRegistration(c *gin.Context) {
	webAuthn, errWebAuthn := loadWebAuthn()
	if errWebAuthn != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "passkey not configured"})
		return
	}

	staff, ok := h.loadStaff(c, "id", "email", "name", "passkey_id", "passkey_public_key", "passkey_sign_count", "passkey_backup_eligible", "passkey_backup_state")
	if !ok {
		return
	}

	user := newStaffWebAuthnUser(staff)
	options := []webauthn.RegistrationOption{
		webauthn.WithResidentKeyRequirement(protocol.ResidentKeyRequirementRequired),
		webauthn.WithAuthenticatorSelection(protocol.AuthenticatorSelection{
			UserVerification: protocol.VerificationPreferred,
		}),
	}
	if len(user.WebAuthnCredentials()) > 0 {
		options = append(options, webauthn.WithExclusions(webauthn.Credentials(user.WebAuthnCredentials()).CredentialDescriptors()))
	}

	creation, session, err := webAuthn.BeginRegistration(user, options...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "begin passkey registration failed"})
		return
	}

	if errPut := h.challenges.PutRegistration(c.Request.Context(), staff.ID, *session); errPut != nil {
		log.WithError(errPut).Error("store passkey registration failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "mfa store unavailable"})
		return
	}
	c.JSON(http.StatusOK, creation)
}

// FinishPasskeyRegistration completes a passkey registration ceremony.
func (h *MFAHandler) FinishPasskeyRegistration(c *gin.Context) {
	webAuthn, errWebAuthn := loadWebAuthn()
	if errWebAuthn != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "passkey not configured"})
		return
	}

	staff, ok := h.loadStaff(c, "id", "email", "name", "passkey_id", "passkey_public_key", "passkey_sign_count")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	session, found, errGet := h.challenges.Registration(ctx, staff.ID)
	if errGet != nil {
		log.WithError(errGet).Error("load passkey registration failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "mfa store unavailable"})
		return
	}
	if !found {
		c.JSON(http.StatusBadRequest, gin.H{"error": "registration expired"})
		return
	}

	user := newStaffWebAuthnUser(staff)
	credential, err := webAuthn.FinishRegistration(user, session, c.Request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "registration failed"})
		return
	}

	signCount := uint32(credential.Authenticator.SignCount)
	if errUpdate := h.db.WithContext(ctx).Model(&models.Customer{}).
		Where("id = ?", staff.ID).
		Updates(map[string]any{
			"passkey_id":              credential.ID,
			"passkey_public_key":      credential.PublicKey,
			"passkey_sign_count":      signCount,
			"passkey_backup_eligible": credential.Flags.BackupEligible,
			"passkey_backup_state":    credential.Flags.BackupState,
			"updated_at":              time.Now().UTC(),
		}).Error; errUpdate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}

	if errDrop := h.challenges.DropRegistration(ctx, staff.ID); errDrop != nil {
		log.WithError(errDrop).WithField("admin_id", staff.ID).Warn("drop passkey registration failed")
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// loginPrepareRequest defines the request body for the MFA pre-check.
type loginPrepareRequest struct {
	Email string `json:"email"`
}

// LoginPrepare returns MFA status prior to staff login.
func (h *AuthHandler) LoginPrepare(c *gin.Context) {
	var body loginPrepareRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := strings.TrimSpace(body.Email)
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	staff, errFind := h.findStaff(c, email)
	if errFind != nil {
		writeStaffLookupError(c, errFind)
		return
	}
	if staff.Disabled {
		c.JSON(http.StatusForbidden, gin.H{"error": "account is disabled"})
		return
	}

	totpEnabled := strings.TrimSpace(staff.TOTPSecret) != ""
	passkeyEnabled := len(staff.PasskeyID) > 0 && len(staff.PasskeyPublicKey) > 0
	c.JSON(http.StatusOK, gin.H{
		"mfa_enabled":     totpEnabled || passkeyEnabled,
		"totp_enabled":    totpEnabled,
		"passkey_enabled": passkeyEnabled,
	})
}

// loginTotpRequest defines the request body for TOTP login.
type loginTotpRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Code     string `json:"code"`
}

// LoginTOTP authenticates staff with password plus a TOTP code.
func (h *AuthHandler) LoginTOTP(c *gin.Context) {
	var body loginTotpRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := strings.TrimSpace(body.Email)
	password := strings.TrimSpace(body.Password)
	code := strings.TrimSpace(body.Code)
	if email == "" || password == "" || code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email, password and code are required"})
		return
	}

	staff, errFind := h.findStaff(c, email)
	if errFind != nil {
		writeStaffLookupError(c, errFind)
		return
	}
	if staff.Disabled {
		c.JSON(http.StatusForbidden, gin.H{"error": "account is disabled"})
		return
	}
	if !security.CheckPassword(staff.Password, password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if strings.TrimSpace(staff.TOTPSecret) == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "totp not enabled"})
		return
	}
	if !totp.Validate(code, staff.TOTPSecret) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
		return
	}

	h.respondWithAdminToken(c, staff)
}

// LoginPasskeyOptions starts a passkey login ceremony.
func (h *AuthHandler) LoginPasskeyOptions(c *gin.Context) {
	webAuthn, errWebAuthn := loadWebAuthn()
	if errWebAuthn != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "passkey not configured"})
		return
	}

	var body loginPrepareRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	staff, errFind := h.findStaff(c, email)
	if errFind != nil {
		writeStaffLookupError(c, errFind)
		return
	}
	if staff.Disabled {
		c.JSON(http.StatusForbidden, gin.H{"error": "account is disabled"})
		return
	}
	if len(staff.PasskeyID) == 0 || len(staff.PasskeyPublicKey) == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "passkey not enabled"})
		return
	}

	user := newStaffWebAuthnUser(staff)
	assertion, session, err := webAuthn.BeginLogin(user, webauthn.WithUserVerification(protocol.VerificationPreferred))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "begin passkey login failed"})
		return
	}

	if errPut := h.challenges.PutLogin(c.Request.Context(), email, *session); errPut != nil {
		log.WithError(errPut).Error("store passkey login failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "mfa store unavailable"})
		return
	}
	c.JSON(http.StatusOK, assertion)
}

// LoginPasskeyVerify completes a passkey login ceremony.
func (h *AuthHandler) LoginPasskeyVerify(c *gin.Context) {
	webAuthn, errWebAuthn := loadWebAuthn()
	if errWebAuthn != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "passkey not configured"})
		return
	}

	email := strings.ToLower(strings.TrimSpace(c.Query("email")))
	if email == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email is required"})
		return
	}

	staff, errFind := h.findStaff(c, email)
	if errFind != nil {
		writeStaffLookupError(c, errFind)
		return
	}
	if staff.Disabled {
		c.JSON(http.StatusForbidden, gin.H{"error": "account is disabled"})
		return
	}
	if len(staff.PasskeyID) == 0 || len(staff.PasskeyPublicKey) == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "passkey not enabled"})
		return
	}

	ctx := c.Request.Context()
	session, found, errGet := h.challenges.Login(ctx, email)
	if errGet != nil {
		log.WithError(errGet).Error("load passkey login failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "mfa store unavailable"})
		return
	}
	if !found {
		c.JSON(http.StatusBadRequest, gin.H{"error": "login expired"})
		return
	}

	rawBody, errRead := io.ReadAll(c.Request.Body)
	if errRead != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(rawBody))

	user := newStaffWebAuthnUser(staff)
	if (staff.PasskeyBackupEligible == nil || staff.PasskeyBackupState == nil) && len(user.credentials) > 0 {
		parsed, errParse := protocol.ParseCredentialRequestResponseBytes(rawBody)
		if errParse != nil {
			log.WithError(errParse).WithField("email", email).Warn("passkey login parse failed")
		} else {
			user.credentials[0].Flags.BackupEligible = parsed.Response.AuthenticatorData.Flags.HasBackupEligible()
			user.credentials[0].Flags.BackupState = parsed.Response.AuthenticatorData.Flags.HasBackupState()
		}
	}
	credential, err := webAuthn.FinishLogin(user, session, c.Request)
	if err != nil {
		log.WithError(err).WithField("email", email).Warn("passkey login failed")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "login failed"})
		return
	}

	signCount := uint32(credential.Authenticator.SignCount)
	if errUpdate := h.db.WithContext(ctx).Model(&models.Customer{}).
		Where("id = ?", staff.ID).
		Updates(map[string]any{
			"passkey_sign_count":      signCount,
			"passkey_backup_eligible": credential.Flags.BackupEligible,
			"passkey_backup_state":    credential.Flags.BackupState,
			"updated_at":              time.Now().UTC(),
		}).Error; errUpdate != nil {
		log.WithError(errUpdate).WithField("email", email).Warn("passkey sign count update failed")
	}

	if errDrop := h.challenges.DropLogin(ctx, email); errDrop != nil {
		log.WithError(errDrop).WithField("email", email).Warn("drop passkey login failed")
	}
	h.respondWithAdminToken(c, staff)
}
