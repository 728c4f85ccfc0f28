package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hypnotize1/blog-api/middleware"
	"github.com/hypnotize1/blog-api/models"
	"github.com/hypnotize1/blog-api/utils"
)

// CommentController manages comments scoped to posts.
type CommentController struct {
	db *gorm.DB
}

// NewCommentController creates a new CommentController instance.
func NewCommentController(db *gorm.DB) *CommentController {
	return &CommentController{db: db}
}

// CreateComment allows authenticated users to comment on an existing post.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	var req struct {
		Text   string `json:"text"`
		PostID uint   `json:"postId"`
	}

	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, "invalid request payload")
		return
	}

	text := utils.Sanitize(req.Text)
	if text == "" || req.PostID == 0 {
		utils.Error(ctx, http.StatusBadRequest, "text and postId are required")
		return
	}

	var post models.Post
	if err := c.db.First(&post, req.PostID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to load post")
		return
	}

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	comment := models.Comment{
		Text:   text,
		PostID: post.ID,
		UserID: user.ID,
	}
	if err := c.db.Create(&comment).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to create comment")
		return
	}
	comment.User = user

	utils.Success(ctx, http.StatusCreated, gin.H{"comment": comment})
}

// ListCommentsByPost returns the comments of a post, newest first. A post id
// without comments (or without a post) yields an empty list.
func (c *CommentController) ListCommentsByPost(ctx *gin.Context) {
	postID, ok := parseID(ctx.Param("postId"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, "invalid post id")
		return
	}

	var comments []models.Comment
	if err := c.db.Where("post_id = ?", postID).
		Preload("User").
		Order("created_at DESC").
		Find(&comments).Error; err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to list comments")
		return
	}

	utils.Success(ctx, http.StatusOK, gin.H{
		"comments": comments,
		"results":  len(comments),
	})
}

// DeleteComment allows the comment's author to delete it.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, "invalid comment id")
		return
	}

	var comment models.Comment
	if err := c.db.First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "comment not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to load comment")
		return
	}

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}
	if comment.UserID != user.ID {
		utils.Error(ctx, http.StatusForbidden, "you are not authorized to delete this comment")
		return
	}

	res := c.db.Delete(&models.Comment{}, comment.ID)
	if res.Error != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to delete comment")
		return
	}
	if res.RowsAffected == 0 {
		// Lost a race against a concurrent delete.
		utils.Error(ctx, http.StatusNotFound, "comment not found")
		return
	}

	ctx.Status(http.StatusNoContent)
}
