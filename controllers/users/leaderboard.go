package users

import (
	"net/http"

	"github.com/soban-iftikhar/HostelMate/database"
	"github.com/soban-iftikhar/HostelMate/models"
	"github.com/soban-iftikhar/HostelMate/utils"
)

const leaderboardSize = 10

// LeaderboardHandler GET /api/users/leaderboard
// Top residents by karma. Email stays private.
func LeaderboardHandler(w http.ResponseWriter, r *http.Request) {
	var top []models.User
	if err := database.DB.
		Select("id, name, room_no, karma_points").
		Order("karma_points DESC").
		Limit(leaderboardSize).
		Find(&top).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	resp := make([]map[string]interface{}, 0, len(top))
	for _, u := range top {
		resp = append(resp, map[string]interface{}{
			"id":           u.ID,
			"name":         u.Name,
			"room_no":      u.RoomNo,
			"karma_points": u.KarmaPoints,
		})
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: resp})
}
