package handlers

import (
	"database/sql"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cashwise/cashwise-api/middleware"
	"github.com/cashwise/cashwise-api/models"
	"github.com/cashwise/cashwise-api/services"
)

type HouseholdHandler struct {
	DB    *sql.DB
	Email *services.EmailService
}

// CreateHousehold creates a household and adds the creator as OWNER. A user
// can only belong to one household.
func (h *HouseholdHandler) CreateHousehold(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.CreateHouseholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var alreadyMember bool
	err := h.DB.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM household_members WHERE user_id = $1)
	`, userID).Scan(&alreadyMember)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if alreadyMember {
		c.JSON(http.StatusConflict, gin.H{"error": "You are already part of a household"})
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create household"})
		return
	}
	defer tx.Rollback()

	var household models.Household
	err = tx.QueryRow(`
		INSERT INTO households (name, owner_id)
		VALUES ($1, $2)
		RETURNING id, name, owner_id, created_at, updated_at
	`, req.Name, userID).Scan(&household.ID, &household.Name, &household.OwnerID,
		&household.CreatedAt, &household.UpdatedAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create household"})
		return
	}

	_, err = tx.Exec(`
		INSERT INTO household_members (household_id, user_id, role)
		VALUES ($1, $2, $3)
	`, household.ID, userID, models.RoleOwner)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add owner as member"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create household"})
		return
	}

	c.JSON(http.StatusCreated, household)
}

// GetMyHousehold returns the caller's household and its members.
func (h *HouseholdHandler) GetMyHousehold(c *gin.Context) {
	userID := middleware.GetUserID(c)

	householdID, err := getHouseholdID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var household models.Household
	err = h.DB.QueryRow(`
		SELECT id, name, owner_id, created_at, updated_at
		FROM households WHERE id = $1
	`, householdID).Scan(&household.ID, &household.Name, &household.OwnerID,
		&household.CreatedAt, &household.UpdatedAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch household"})
		return
	}

	members := []models.HouseholdMember{}
	rows, err := h.DB.Query(`
		SELECT hm.id, hm.household_id, hm.user_id, hm.role, hm.joined_at, u.name, u.email
		FROM household_members hm
		INNER JOIN users u ON hm.user_id = u.id
		WHERE hm.household_id = $1
		ORDER BY hm.joined_at
	`, householdID)
	if err == nil {
		defer rows.Close()
		for rows.Next() {
			var member models.HouseholdMember
			if err := rows.Scan(&member.ID, &member.HouseholdID, &member.UserID,
				&member.Role, &member.JoinedAt, &member.UserName, &member.UserEmail); err != nil {
				continue
			}
			members = append(members, member)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"household": household,
		"members":   members,
		"is_owner":  household.OwnerID == userID,
	})
}

// InviteMember creates a pending invitation and emails its token.
func (h *HouseholdHandler) InviteMember(c *gin.Context) {
	userID := middleware.GetUserID(c)

	householdID, err := getHouseholdID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var isOwner bool
	err = h.DB.QueryRow(`
		SELECT owner_id = $1 FROM households WHERE id = $2
	`, userID, householdID).Scan(&isOwner)
	if err != nil || !isOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can invite members"})
		return
	}

	var req models.InviteMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token := uuid.New().String()

	var invitation models.HouseholdInvitation
	err = h.DB.QueryRow(`
		INSERT INTO household_invitations (household_id, email, invited_by, token, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, household_id, email, invited_by, status, expires_at, created_at
	`, householdID, req.Email, userID, token, time.Now().Add(7*24*time.Hour)).
		Scan(&invitation.ID, &invitation.HouseholdID, &invitation.Email,
			&invitation.InvitedBy, &invitation.Status, &invitation.ExpiresAt, &invitation.CreatedAt)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create invitation"})
		return
	}

	var inviterName, householdName string
	_ = h.DB.QueryRow(`SELECT name FROM users WHERE id = $1`, userID).Scan(&inviterName)
	_ = h.DB.QueryRow(`SELECT name FROM households WHERE id = $1`, householdID).Scan(&householdName)

	if err := h.Email.SendInvitation(req.Email, inviterName, householdName, token); err != nil {
		// The invitation still exists; the token can be shared manually.
		log.Printf("⚠️ Failed to send invitation email to %s: %v", req.Email, err)
	}

	c.JSON(http.StatusCreated, gin.H{
		"invitation": invitation,
		"token":      token,
	})
}

// AcceptInvitation adds the caller to the invited household.
func (h *HouseholdHandler) AcceptInvitation(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.AcceptInvitationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var invitationID, householdID string
	var expiresAt time.Time
	err := h.DB.QueryRow(`
		SELECT id, household_id, expires_at
		FROM household_invitations
		WHERE token = $1 AND status = 'pending'
	`, req.Token).Scan(&invitationID, &householdID, &expiresAt)
	if err == sql.ErrNoRows {
		c.JSON(http.StatusNotFound, gin.H{"error": "Invitation not found or already used"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if time.Now().After(expiresAt) {
		c.JSON(http.StatusGone, gin.H{"error": "Invitation has expired"})
		return
	}

	var alreadyMember bool
	err = h.DB.QueryRow(`
		SELECT EXISTS(SELECT 1 FROM household_members WHERE user_id = $1)
	`, userID).Scan(&alreadyMember)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if alreadyMember {
		c.JSON(http.StatusConflict, gin.H{"error": "You are already part of a household"})
		return
	}

	tx, err := h.DB.Begin()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to accept invitation"})
		return
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO household_members (household_id, user_id, role)
		VALUES ($1, $2, $3)
	`, householdID, userID, models.RoleMember)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to join household"})
		return
	}

	_, err = tx.Exec(`
		UPDATE household_invitations SET status = 'accepted' WHERE id = $1
	`, invitationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update invitation"})
		return
	}

	if err := tx.Commit(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to accept invitation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Invitation accepted", "household_id": householdID})
}

// RemoveMember removes a member from the household (owner only, not self).
func (h *HouseholdHandler) RemoveMember(c *gin.Context) {
	userID := middleware.GetUserID(c)
	memberID := c.Param("member_id")

	householdID, err := getHouseholdID(h.DB, userID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var isOwner bool
	err = h.DB.QueryRow(`
		SELECT owner_id = $1 FROM households WHERE id = $2
	`, userID, householdID).Scan(&isOwner)
	if err != nil || !isOwner {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the owner can remove members"})
		return
	}

	result, err := h.DB.Exec(`
		DELETE FROM household_members
		WHERE id = $1 AND household_id = $2 AND user_id != $3
	`, memberID, householdID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove member"})
		return
	}
	if affected, _ := result.RowsAffected(); affected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed successfully"})
}
