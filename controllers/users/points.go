package users

import (
	"log"
	"net/http"

	"github.com/soban-iftikhar/HostelMate/database"
	"github.com/soban-iftikhar/HostelMate/models"
	"github.com/soban-iftikhar/HostelMate/utils"
)

// PointsHistoryHandler GET /api/users/points/history
// The caller's karma movements, newest first. Audit trail only; the balance on
// the profile is the source of truth.
func PointsHistoryHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	var events []models.KarmaEvent
	if err := database.DB.
		Where("user_id = ?", uid).
		Order("created_at DESC").
		Limit(100).
		Find(&events).Error; err != nil {
		log.Printf("[points/history] DB error: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: events})
}
