package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hypnotize1/blog-api/middleware"
	"github.com/hypnotize1/blog-api/models"
	"github.com/hypnotize1/blog-api/utils"
)

// PostController manages CRUD operations for posts, including image uploads.
type PostController struct {
	db    *gorm.DB
	blobs *utils.BlobStore
}

// NewPostController creates a new PostController instance.
func NewPostController(db *gorm.DB, blobs *utils.BlobStore) *PostController {
	return &PostController{db: db, blobs: blobs}
}

// CreatePost allows authenticated users to create new posts. It accepts a
// multipart form with title, content, and an optional single image file.
func (p *PostController) CreatePost(ctx *gin.Context) {
	title := utils.Sanitize(strings.TrimSpace(ctx.PostForm("title")))
	content := utils.Sanitize(ctx.PostForm("content"))
	if title == "" || content == "" {
		utils.Error(ctx, http.StatusBadRequest, "title and content are required")
		return
	}

	user, ok := middleware.CurrentUser(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, "unauthorized")
		return
	}

	var image *string
	if header, err := ctx.FormFile("image"); err == nil {
		url, err := p.blobs.SaveImage(header)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, "invalid image upload, only image files are accepted")
			return
		}
		image = &url
	}

	post := models.Post{
		Title:    title,
		Content:  content,
		Image:    image,
		AuthorID: user.ID,
	}

	if err := p.db.Create(&post).Error; err != nil {
		if image != nil {
			p.blobs.RemoveAsync(*image)
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to create post")
		return
	}
	post.Author = user

	utils.Success(ctx, http.StatusCreated, gin.H{"post": post})
}

// ListPosts returns paginated posts including author information. The count
// and the page run inside one transaction so totals match the page contents
// even under concurrent writes.
func (p *PostController) ListPosts(ctx *gin.Context) {
	page, limit := parsePagination(ctx.Query("page"), ctx.Query("limit"))
	search := strings.TrimSpace(ctx.Query("search"))

	filtered := func(tx *gorm.DB) *gorm.DB {
		q := tx.Model(&models.Post{})
		if search != "" {
			needle := "%" + strings.ToLower(search) + "%"
			q = q.Where("LOWER(title) LIKE ? OR LOWER(content) LIKE ?", needle, needle)
		}
		return q
	}

	var posts []models.Post
	var total int64
	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := filtered(tx).Count(&total).Error; err != nil {
			return err
		}
		return filtered(tx).
			Preload("Author").
			Order("created_at DESC").
			Offset((page - 1) * limit).
			Limit(limit).
			Find(&posts).Error
	})
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, "failed to list posts")
		return
	}

	utils.Success(ctx, http.StatusOK, gin.H{
		"posts":       posts,
		"results":     len(posts),
		"totalPosts":  total,
		"totalPages":  int((total + int64(limit) - 1) / int64(limit)),
		"currentPage": page,
	})
}

// GetPost returns a single post with its author.
func (p *PostController) GetPost(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, "invalid post id")
		return
	}

	var post models.Post
	if err := p.db.Preload("Author").First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to load post")
		return
	}

	utils.Success(ctx, http.StatusOK, gin.H{"post": post})
}

// UpdatePost allows the author to partially update their post. Absent fields
// keep their previous values; a new image replaces and deletes the old blob.
func (p *PostController) UpdatePost(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, "invalid post id")
		return
	}

	var post models.Post
	if err := p.db.Preload("Author").First(&post, id).Error; err != nil {
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
	// Existence is checked before ownership on purpose: a missing post
	// answers 404 to every caller, an existing one 403 to non-owners.
	if post.AuthorID != user.ID {
		utils.Error(ctx, http.StatusForbidden, "you are not authorized to edit this post")
		return
	}

	if title, ok := ctx.GetPostForm("title"); ok {
		title = utils.Sanitize(strings.TrimSpace(title))
		if title == "" {
			utils.Error(ctx, http.StatusBadRequest, "title cannot be empty")
			return
		}
		post.Title = title
	}
	if content, ok := ctx.GetPostForm("content"); ok {
		content = utils.Sanitize(content)
		if content == "" {
			utils.Error(ctx, http.StatusBadRequest, "content cannot be empty")
			return
		}
		post.Content = content
	}

	var newImage, oldImage *string
	if header, err := ctx.FormFile("image"); err == nil {
		url, err := p.blobs.SaveImage(header)
		if err != nil {
			utils.Error(ctx, http.StatusBadRequest, "invalid image upload, only image files are accepted")
			return
		}
		newImage = &url
		oldImage = post.Image
		post.Image = newImage
	}

	if err := p.db.Save(&post).Error; err != nil {
		if newImage != nil {
			p.blobs.RemoveAsync(*newImage)
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to update post")
		return
	}

	// The superseded blob goes away only after the row committed.
	if oldImage != nil {
		p.blobs.RemoveAsync(*oldImage)
	}

	utils.Success(ctx, http.StatusOK, gin.H{"post": post})
}

// DeletePost allows the author to delete their post. Its comments go with it
// in the same transaction; the attached blob is removed best-effort after.
func (p *PostController) DeletePost(ctx *gin.Context) {
	id, ok := parseID(ctx.Param("id"))
	if !ok {
		utils.Error(ctx, http.StatusBadRequest, "invalid post id")
		return
	}

	var post models.Post
	if err := p.db.First(&post, id).Error; err != nil {
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
	if post.AuthorID != user.ID {
		utils.Error(ctx, http.StatusForbidden, "you are not authorized to delete this post")
		return
	}

	err := p.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Post{}, post.ID)
		if res.Error != nil {
			return res.Error
		}
		// A concurrent delete already won the race; report not found
		// instead of silently succeeding twice.
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Error(ctx, http.StatusNotFound, "post not found")
			return
		}
		utils.Error(ctx, http.StatusInternalServerError, "failed to delete post")
		return
	}

	if post.Image != nil {
		p.blobs.RemoveAsync(*post.Image)
	}

	ctx.Status(http.StatusNoContent)
}

func parsePagination(pageStr, limitStr string) (int, int) {
	page := 1
	limit := 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(limitStr); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	return page, limit
}

func parseID(raw string) (uint, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
