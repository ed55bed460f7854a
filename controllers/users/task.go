package users

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/soban-iftikhar/HostelMate/database"
	"github.com/soban-iftikhar/HostelMate/middleware"
	"github.com/soban-iftikhar/HostelMate/models"
	"github.com/soban-iftikhar/HostelMate/utils"

	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

// Lifecycle refusal reasons. Handlers translate these into responses; the
// transaction closures return them so every refusal rolls back cleanly.
var (
	errTaskNotFound = errors.New("task not found")
	errForbidden    = errors.New("not authorized for this task")
	errInvalidState = errors.New("task is not in a valid state for this action")
	errTaskConflict = errors.New("task was modified by another request")
)

// recordKarmaEvent appends an audit row for a ledger movement. Must run inside
// the same transaction as the movement itself.
func recordKarmaEvent(tx *gorm.DB, userID uint, taskID *uint, amount int, kind, message string) error {
	return tx.Create(&models.KarmaEvent{
		UserID:  userID,
		TaskID:  taskID,
		Amount:  amount,
		Kind:    kind,
		RefID:   utils.GenerateEventRefID(userID),
		Message: message,
	}).Error
}

type CreateTaskRequest struct {
	Title        string `json:"title" validate:"required"`
	Description  string `json:"description" validate:"required"`
	RewardPoints int    `json:"reward_points"`
}

// CreateTaskHandler POST /api/tasks/create
// Debits the requester's escrow and inserts the pending task as one
// transaction: if the insert fails the debit rolls back.
func CreateTaskHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	var req CreateTaskRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	if req.RewardPoints <= 0 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Reward points must be positive"})
		return
	}

	task := models.Task{
		Title:        strings.TrimSpace(req.Title),
		Description:  strings.TrimSpace(req.Description),
		RewardPoints: req.RewardPoints,
		Status:       models.TaskStatusPending,
		RequesterID:  uid,
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		if err := models.DebitKarma(tx, uid, req.RewardPoints); err != nil {
			return err
		}
		if err := tx.Create(&task).Error; err != nil {
			return err
		}
		msg := fmt.Sprintf("Staked %d points on %q", req.RewardPoints, task.Title)
		return recordKarmaEvent(tx, uid, &task.ID, -req.RewardPoints, models.KarmaEventEscrow, msg)
	})
	if err != nil {
		writeLedgerError(w, err, "create")
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.APIResponse{Success: true, Message: "Task created", Data: task})
}

// AvailableTasksHandler GET /api/tasks/available
// Pending tasks posted by other residents, requester identity joined in.
func AvailableTasksHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	var tasks []models.Task
	if err := database.DB.
		Where("status = ? AND requester_id <> ?", models.TaskStatusPending, uid).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		log.Printf("[tasks/available] DB error: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: joinTaskUsers(tasks)})
}

type AcceptTaskRequest struct {
	TaskID uint `json:"task_id"`
}

// AcceptTaskHandler PUT /api/tasks/accept
// The transition is a conditional update keyed on the pending status, so two
// concurrent accepts cannot both win: the loser sees the row already claimed.
func AcceptTaskHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	var req AcceptTaskRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	if req.TaskID == 0 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "task_id is required"})
		return
	}

	db := database.DB

	var task models.Task
	if err := db.First(&task, req.TaskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Task not found"})
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}
	if task.RequesterID == uid {
		utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Cannot accept your own task"})
		return
	}

	res := db.Model(&models.Task{}).
		Where("id = ? AND status = ? AND helper_id IS NULL", req.TaskID, models.TaskStatusPending).
		Updates(map[string]interface{}{
			"helper_id": uid,
			"status":    models.TaskStatusInProgress,
		})
	if res.Error != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}
	if res.RowsAffected == 0 {
		// someone else claimed it between our read and the guarded write
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: "Task already accepted"})
		return
	}

	if err := db.First(&task, req.TaskID).Error; err != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Task accepted", Data: task})
}

// RequestCompletionHandler PUT /api/tasks/request-complete/{id}
// Helper-only transition into pending-verification; re-requesting while
// already pending-verification is a no-op re-set of the same fields.
func RequestCompletionHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	taskID, ok := pathID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid task id"})
		return
	}

	db := database.DB

	var task models.Task
	if err := db.First(&task, taskID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Task not found"})
			return
		}
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}
	if task.Status != models.TaskStatusInProgress && task.Status != models.TaskStatusPendingVerification {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Task must be in progress first"})
		return
	}
	if task.HelperID == nil || *task.HelperID != uid {
		utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Only the helper can request completion"})
		return
	}

	requestedBy := "helper"
	res := db.Model(&models.Task{}).
		Where("id = ? AND status IN ? AND helper_id = ?", taskID,
			[]string{models.TaskStatusInProgress, models.TaskStatusPendingVerification}, uid).
		Updates(map[string]interface{}{
			"status":                  models.TaskStatusPendingVerification,
			"completion_requested_by": requestedBy,
		})
	if res.Error != nil {
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}
	if res.RowsAffected == 0 {
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: "Task was modified, try again"})
		return
	}

	task.Status = models.TaskStatusPendingVerification
	task.CompletionRequestedBy = &requestedBy
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Completion requested, awaiting approval", Data: task})
}

// CompleteTaskHandler PUT /api/tasks/complete/{id}
// Requester approval: credit the helper, archive the task into history and
// remove the live row, all in one transaction. This is the only path that
// releases escrowed points to the helper.
func CompleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	taskID, ok := pathID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid task id"})
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.First(&task, taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errTaskNotFound
			}
			return err
		}
		if task.RequesterID != uid {
			return errForbidden
		}
		if task.Status != models.TaskStatusInProgress && task.Status != models.TaskStatusPendingVerification {
			return errInvalidState
		}
		if task.HelperID == nil {
			return errInvalidState
		}
		helperID := utils.GetUintValue(task.HelperID)

		// Guarded delete: a concurrent approval that already archived the row
		// leaves RowsAffected at zero and aborts before any credit.
		res := tx.Where("id = ? AND status IN ?", task.ID,
			[]string{models.TaskStatusInProgress, models.TaskStatusPendingVerification}).
			Delete(&models.Task{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errTaskConflict
		}

		if err := models.CreditKarma(tx, helperID, task.RewardPoints); err != nil {
			return err
		}
		if err := tx.Create(&models.History{
			TaskID:       task.ID,
			Title:        task.Title,
			Description:  task.Description,
			RewardPoints: task.RewardPoints,
			Status:       "completed",
			RequesterID:  task.RequesterID,
			HelperID:     task.HelperID,
			CompletedAt:  time.Now(),
		}).Error; err != nil {
			return err
		}
		msg := fmt.Sprintf("Earned %d points for %q", task.RewardPoints, task.Title)
		return recordKarmaEvent(tx, helperID, &task.ID, task.RewardPoints, models.KarmaEventReward, msg)
	})
	if err != nil {
		writeLedgerError(w, err, "complete")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Task completed! Points awarded to helper."})
}

type UpdateTaskRequest struct {
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	RewardPoints *int    `json:"reward_points"`
}

// UpdateTaskHandler PUT /api/tasks/update/{id}
// Pending tasks only, requester only. A reward change debits or credits the
// difference so escrow always equals the current reward.
func UpdateTaskHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	taskID, ok := pathID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid task id"})
		return
	}

	var req UpdateTaskRequest
	if err := middleware.ValidateJSON(w, r, &req); err != nil {
		return
	}
	if req.Title == nil && req.Description == nil && req.RewardPoints == nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Nothing to update"})
		return
	}
	if req.RewardPoints != nil && *req.RewardPoints <= 0 {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Reward points must be positive"})
		return
	}

	var updated models.Task
	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.First(&task, taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errTaskNotFound
			}
			return err
		}
		if task.RequesterID != uid {
			return errForbidden
		}
		if task.Status != models.TaskStatusPending {
			return errInvalidState
		}

		fields := map[string]interface{}{}
		if req.Title != nil {
			fields["title"] = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			fields["description"] = strings.TrimSpace(*req.Description)
		}
		diff := 0
		if req.RewardPoints != nil {
			diff = *req.RewardPoints - task.RewardPoints
			fields["reward_points"] = *req.RewardPoints
		}

		// Guarded on status so a concurrent accept aborts the edit.
		res := tx.Model(&models.Task{}).
			Where("id = ? AND status = ?", task.ID, models.TaskStatusPending).
			Updates(fields)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errTaskConflict
		}

		switch {
		case diff > 0:
			if err := models.DebitKarma(tx, uid, diff); err != nil {
				return err
			}
			msg := fmt.Sprintf("Raised stake on %q by %d points", task.Title, diff)
			if err := recordKarmaEvent(tx, uid, &task.ID, -diff, models.KarmaEventAdjustment, msg); err != nil {
				return err
			}
		case diff < 0:
			if err := models.CreditKarma(tx, uid, -diff); err != nil {
				return err
			}
			msg := fmt.Sprintf("Lowered stake on %q by %d points", task.Title, -diff)
			if err := recordKarmaEvent(tx, uid, &task.ID, -diff, models.KarmaEventRefund, msg); err != nil {
				return err
			}
		}

		return tx.First(&updated, task.ID).Error
	})
	if err != nil {
		writeLedgerError(w, err, "update")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Task updated", Data: updated})
}

// DeleteTaskHandler DELETE /api/tasks/delete/{id}
// Requester only, pending only: once a helper is assigned the task can no
// longer be withdrawn. The escrow refund and the row removal commit together.
func DeleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}
	taskID, ok := pathID(r)
	if !ok {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid task id"})
		return
	}

	err := database.DB.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.First(&task, taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errTaskNotFound
			}
			return err
		}
		if task.RequesterID != uid {
			return errForbidden
		}
		if task.Status != models.TaskStatusPending {
			return errInvalidState
		}

		res := tx.Where("id = ? AND status = ?", task.ID, models.TaskStatusPending).
			Delete(&models.Task{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errTaskConflict
		}

		if err := models.CreditKarma(tx, uid, task.RewardPoints); err != nil {
			return err
		}
		msg := fmt.Sprintf("Refunded %d points for deleted task %q", task.RewardPoints, task.Title)
		return recordKarmaEvent(tx, uid, &task.ID, task.RewardPoints, models.KarmaEventRefund, msg)
	})
	if err != nil {
		writeLedgerError(w, err, "delete")
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Task deleted and points refunded"})
}

// MyTasksHandler GET /api/tasks/myTasks
// Live tasks where the caller is requester or helper, newest first.
func MyTasksHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	var tasks []models.Task
	if err := database.DB.
		Where("requester_id = ? OR helper_id = ?", uid, uid).
		Order("created_at DESC").
		Find(&tasks).Error; err != nil {
		log.Printf("[tasks/myTasks] DB error: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: joinTaskUsers(tasks)})
}

// TaskHistoryHandler GET /api/tasks/history
// Archived completions where the caller was requester or helper.
func TaskHistoryHandler(w http.ResponseWriter, r *http.Request) {
	uid, ok := utils.GetUserID(r)
	if !ok || uid == 0 {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{Success: false, Message: "Unauthorized"})
		return
	}

	var entries []models.History
	if err := database.DB.
		Where("requester_id = ? OR helper_id = ?", uid, uid).
		Order("completed_at DESC").
		Find(&entries).Error; err != nil {
		log.Printf("[tasks/history] DB error: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
		return
	}

	ids := make([]uint, 0, len(entries)*2)
	for _, e := range entries {
		ids = append(ids, e.RequesterID)
		if e.HelperID != nil {
			ids = append(ids, *e.HelperID)
		}
	}
	userMap := userSummaries(ids)

	resp := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		item := map[string]interface{}{
			"id":            e.ID,
			"task_id":       e.TaskID,
			"title":         e.Title,
			"description":   e.Description,
			"reward_points": e.RewardPoints,
			"status":        e.Status,
			"completed_at":  e.CompletedAt,
			"requester":     userMap[e.RequesterID],
		}
		if e.HelperID != nil {
			item["helper"] = userMap[*e.HelperID]
		}
		resp = append(resp, item)
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{Success: true, Message: "Successfully", Data: resp})
}

// joinTaskUsers decorates tasks with requester/helper name and room.
func joinTaskUsers(tasks []models.Task) []map[string]interface{} {
	ids := make([]uint, 0, len(tasks)*2)
	for _, t := range tasks {
		ids = append(ids, t.RequesterID)
		if t.HelperID != nil {
			ids = append(ids, *t.HelperID)
		}
	}
	userMap := userSummaries(ids)

	resp := make([]map[string]interface{}, 0, len(tasks))
	for _, t := range tasks {
		item := map[string]interface{}{
			"id":            t.ID,
			"title":         t.Title,
			"description":   t.Description,
			"reward_points": t.RewardPoints,
			"status":        t.Status,
			"created_at":    t.CreatedAt,
			"requester":     userMap[t.RequesterID],
		}
		if t.HelperID != nil {
			item["helper"] = userMap[*t.HelperID]
		}
		if s := utils.GetStringValue(t.CompletionRequestedBy); s != "" {
			item["completion_requested_by"] = s
		}
		resp = append(resp, item)
	}
	return resp
}

// userSummaries fetches id/name/room for the given user ids.
func userSummaries(ids []uint) map[uint]map[string]interface{} {
	out := make(map[uint]map[string]interface{})
	if len(ids) == 0 {
		return out
	}
	seen := make(map[uint]struct{})
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			unique = append(unique, id)
		}
	}
	var users []models.User
	database.DB.Select("id, name, room_no").Where("id IN ?", unique).Find(&users)
	for _, u := range users {
		out[u.ID] = map[string]interface{}{
			"id":      u.ID,
			"name":    u.Name,
			"room_no": u.RoomNo,
		}
	}
	return out
}

// pathID extracts the numeric {id} path variable.
func pathID(r *http.Request) (uint, bool) {
	raw := mux.Vars(r)["id"]
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || n == 0 {
		return 0, false
	}
	return uint(n), true
}

// writeLedgerError maps lifecycle/ledger failures onto responses. Anything
// unmapped is an operational failure; the transaction has already rolled back.
func writeLedgerError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, errTaskNotFound):
		utils.WriteJSON(w, http.StatusNotFound, utils.APIResponse{Success: false, Message: "Task not found"})
	case errors.Is(err, errForbidden):
		utils.WriteJSON(w, http.StatusForbidden, utils.APIResponse{Success: false, Message: "Not authorized for this task"})
	case errors.Is(err, errInvalidState):
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Task is not in a valid state for this action"})
	case errors.Is(err, errTaskConflict):
		utils.WriteJSON(w, http.StatusConflict, utils.APIResponse{Success: false, Message: "Task was modified by another request, try again"})
	case errors.Is(err, models.ErrInsufficientKarma):
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Insufficient karma points"})
	case errors.Is(err, models.ErrUserNotFound):
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "User not found"})
	case errors.Is(err, models.ErrInvalidAmount):
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Reward points must be positive"})
	default:
		log.Printf("[tasks/%s] DB error: %v", op, err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Server error"})
	}
}
