package handlers

import (
	"net/http"

	"github.com/LovationAdmin/giftlist-api/middleware"
	"github.com/LovationAdmin/giftlist-api/models"
	"github.com/LovationAdmin/giftlist-api/services"

	"github.com/gin-gonic/gin"
)

type GroupHandler struct {
	Groups *services.GroupService
}

func NewGroupHandler(groups *services.GroupService) *GroupHandler {
	return &GroupHandler{Groups: groups}
}

func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req models.CreateGroupRequest
	if !bindJSON(c, &req) {
		return
	}

	group, err := h.Groups.Create(c.Request.Context(), req.Name, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newGroupResponse(group))
}

func (h *GroupHandler) ListGroups(c *gin.Context) {
	groups, err := h.Groups.ListForUser(c.Request.Context(), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]GroupResponse, 0, len(groups))
	for i := range groups {
		resp = append(resp, newGroupResponse(&groups[i]))
	}
	c.JSON(http.StatusOK, gin.H{"groups": resp})
}

func (h *GroupHandler) GetGroup(c *gin.Context) {
	group, err := h.Groups.Get(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newGroupResponse(group))
}

func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	if err := h.Groups.Delete(c.Request.Context(), c.Param("id"), middleware.GetUserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ============================================================================
// INVITATIONS & MEMBERS
// ============================================================================

func (h *GroupHandler) InviteUser(c *gin.Context) {
	var req models.InvitationRequest
	if !bindJSON(c, &req) {
		return
	}

	inv, err := h.Groups.Invite(c.Request.Context(), c.Param("id"), middleware.GetUserID(c), req.Email)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newInvitationResponse(inv))
}

func (h *GroupHandler) GetInvitations(c *gin.Context) {
	invitations, err := h.Groups.ListInvitations(c.Request.Context(), c.Param("id"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	resp := make([]InvitationResponse, 0, len(invitations))
	for i := range invitations {
		resp = append(resp, newInvitationResponse(&invitations[i]))
	}
	c.JSON(http.StatusOK, gin.H{"invitations": resp})
}

func (h *GroupHandler) CancelInvitation(c *gin.Context) {
	err := h.Groups.CancelInvitation(c.Request.Context(), c.Param("id"), c.Param("invitation_id"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Invitation cancelled successfully"})
}

func (h *GroupHandler) AcceptInvitation(c *gin.Context) {
	var req models.AcceptInvitationRequest
	if !bindJSON(c, &req) {
		return
	}

	group, err := h.Groups.AcceptInvitation(c.Request.Context(), req.Token, middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Invitation accepted successfully",
		"group_id": group.ID,
	})
}

func (h *GroupHandler) RemoveMember(c *gin.Context) {
	err := h.Groups.RemoveMember(c.Request.Context(), c.Param("id"), c.Param("member_id"), middleware.GetUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member removed successfully"})
}
