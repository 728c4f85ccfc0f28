package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hypnotize1/blog-api/models"
	"github.com/hypnotize1/blog-api/utils"
)

// AuthController handles signup and login with JWT issuance.
type AuthController struct {
	db        *gorm.DB
	jwtSecret string
	jwtTTL    time.Duration
}

// NewAuthController creates an AuthController.
func NewAuthController(db *gorm.DB, jwtSecret string, jwtTTL time.Duration) *AuthController {
	return &AuthController{db: db, jwtSecret: jwtSecret, jwtTTL: jwtTTL}
}

// Signup registers a new account, hashes its password with bcrypt, and logs
// the user in by returning a token alongside the created identity.
func (a *AuthController) Signup(ctx *gin.Context) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		utils.Error(ctx, http.StatusBadRequest, "name, email and password are required")
		return
	}

	var existing models.User
	if err := a.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		utils.Error(ctx, http.StatusConflict, "this email has already been registered")
		return
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, "failed to create user")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to create user")
		return
	}

	user := models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
	}
	if err := a.db.Create(&user).Error; err != nil {
		// The unique index catches signup races the lookup above missed.
		if strings.Contains(strings.ToLower(err.Error()), "unique") || strings.Contains(err.Error(), "Duplicate entry") {
			utils.Error(ctx, http.StatusConflict, "this email has already been registered")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to create user")
		return
	}

	token, err := utils.GenerateToken(a.jwtSecret, user.ID, a.jwtTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to issue token")
		return
	}

	utils.Success(ctx, http.StatusCreated, gin.H{"user": user, "token": token})
}

// Login authenticates by email and password. A missing user and a wrong
// password answer with the same message so neither case can be told apart.
func (a *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		utils.Error(ctx, http.StatusBadRequest, "please provide email and password")
		return
	}

	var user models.User
	err := a.db.Where("email = ?", req.Email).First(&user).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		utils.Error(ctx, http.StatusInternalServerError, "failed to log in")
		return
	}
	if err != nil || !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, "incorrect email or password")
		return
	}

	token, err := utils.GenerateToken(a.jwtSecret, user.ID, a.jwtTTL)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to issue token")
		return
	}

	utils.Success(ctx, http.StatusOK, gin.H{"user": user, "token": token})
}
