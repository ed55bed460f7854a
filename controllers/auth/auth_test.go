package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/soban-iftikhar/HostelMate/database"
	"github.com/soban-iftikhar/HostelMate/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupAuthDB(t *testing.T) *gorm.DB {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret-for-auth")
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.User{}, &models.RefreshToken{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	database.DB = db
	t.Cleanup(func() {
		database.DB = nil
		_ = sqlDB.Close()
	})
	return db
}

func postJSON(t *testing.T, h http.HandlerFunc, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		t.Fatalf("encode body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func TestRegister_StartsWithHundredKarma(t *testing.T) {
	db := setupAuthDB(t)

	rec := postJSON(t, RegisterHandler, "/api/users/register", map[string]string{
		"name":     "Amir Khan",
		"email":    "Amir@Hostel.test",
		"room_no":  "A-204",
		"password": "secret1",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status = %d body %s", rec.Code, rec.Body.String())
	}

	var user models.User
	if err := db.Where("email = ?", "amir@hostel.test").First(&user).Error; err != nil {
		t.Fatalf("user not stored (email not lowercased?): %v", err)
	}
	if user.KarmaPoints != models.StartingKarma {
		t.Fatalf("karma = %d, want %d", user.KarmaPoints, models.StartingKarma)
	}
	if user.Password == "secret1" {
		t.Fatal("password stored in plaintext")
	}

	// duplicate email is refused
	rec = postJSON(t, RegisterHandler, "/api/users/register", map[string]string{
		"name":     "Other",
		"email":    "amir@hostel.test",
		"room_no":  "B-1",
		"password": "secret2",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate register: status = %d, want 409", rec.Code)
	}
}

func TestRegister_Validation(t *testing.T) {
	setupAuthDB(t)

	cases := []map[string]string{
		{"name": "Amir", "email": "not-an-email", "room_no": "A-1", "password": "secret1"},
		{"name": "Amir", "email": "a@b.test", "room_no": "A-1", "password": "short"},
		{"name": "", "email": "a@b.test", "room_no": "A-1", "password": "secret1"},
	}
	for i, body := range cases {
		rec := postJSON(t, RegisterHandler, "/api/users/register", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("case %d: status = %d, want 400", i, rec.Code)
		}
	}
}

func TestLoginAndRefresh(t *testing.T) {
	setupAuthDB(t)

	postJSON(t, RegisterHandler, "/api/users/register", map[string]string{
		"name":     "Amir Khan",
		"email":    "amir@hostel.test",
		"room_no":  "A-204",
		"password": "secret1",
	})

	rec := postJSON(t, LoginHandler, "/api/users/login", map[string]string{
		"email":    "amir@hostel.test",
		"password": "wrong-pass",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad password: status = %d, want 401", rec.Code)
	}

	rec = postJSON(t, LoginHandler, "/api/users/login", map[string]string{
		"email":    "amir@hostel.test",
		"password": "secret1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status = %d body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			AccessToken  string `json:"access_token"`
			RefreshToken string `json:"refresh_token"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if resp.Data.AccessToken == "" || resp.Data.RefreshToken == "" {
		t.Fatal("missing tokens in login response")
	}

	// exchange the refresh token; the old one must be revoked by rotation
	rec = postJSON(t, RefreshHandler, "/api/users/refresh", map[string]string{
		"refresh_token": resp.Data.RefreshToken,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: status = %d body %s", rec.Code, rec.Body.String())
	}
	rec = postJSON(t, RefreshHandler, "/api/users/refresh", map[string]string{
		"refresh_token": resp.Data.RefreshToken,
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh token: status = %d, want 401", rec.Code)
	}
}
