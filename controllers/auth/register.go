package auth

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/soban-iftikhar/HostelMate/database"
	"github.com/soban-iftikhar/HostelMate/middleware"
	"github.com/soban-iftikhar/HostelMate/models"
	"github.com/soban-iftikhar/HostelMate/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,nameok"`
	Email    string `json:"email" validate:"required,emailok"`
	RoomNo   string `json:"room_no" validate:"required,roomok"`
	Password string `json:"password" validate:"required,pwdmin"`
}

// RegisterHandler creates a resident account with the starting karma balance.
func RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.RoomNo = strings.TrimSpace(req.RoomNo)

	db := database.DB

	var existing models.User
	if err := db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: "Email already registered"})
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		log.Printf("[register] DB error checking email: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	user := models.User{
		Name:        req.Name,
		Email:       req.Email,
		RoomNo:      req.RoomNo,
		Password:    string(hashed),
		KarmaPoints: models.StartingKarma,
	}
	if err := db.Create(&user).Error; err != nil {
		log.Printf("[register] DB error creating user: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{
		Success: true,
		Message: "Registered",
		Data: map[string]interface{}{
			"id":           user.ID,
			"name":         user.Name,
			"email":        user.Email,
			"room_no":      user.RoomNo,
			"karma_points": user.KarmaPoints,
		},
	})
}
