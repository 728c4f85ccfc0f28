package controllers_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hypnotize1/blog-api/controllers"
	"github.com/hypnotize1/blog-api/middleware"
	"github.com/hypnotize1/blog-api/models"
	"github.com/hypnotize1/blog-api/utils"
)

const testSecret = "controllers-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	db    *gorm.DB
	blobs *utils.BlobStore
	r     *gin.Engine
}

// newTestEnv wires the full route table over an in-memory sqlite store and a
// temp-dir blob store, mirroring routes.SetupRouter without global config.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.User{}, &models.Post{}, &models.Comment{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	blobs, err := utils.NewBlobStore(t.TempDir(), 1)
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}

	authController := controllers.NewAuthController(db, testSecret, time.Hour)
	postController := controllers.NewPostController(db, blobs)
	commentController := controllers.NewCommentController(db)

	r := gin.New()
	r.POST("/auth/signup", authController.Signup)
	r.POST("/auth/login", authController.Login)
	r.GET("/posts", postController.ListPosts)
	r.GET("/posts/:id", postController.GetPost)
	r.GET("/comments/post/:postId", commentController.ListCommentsByPost)

	protected := r.Group("")
	protected.Use(middleware.AuthRequired(db, testSecret))
	protected.POST("/posts", postController.CreatePost)
	protected.PATCH("/posts/:id", postController.UpdatePost)
	protected.DELETE("/posts/:id", postController.DeletePost)
	protected.POST("/comments", commentController.CreateComment)
	protected.DELETE("/comments/:id", commentController.DeleteComment)

	return &testEnv{db: db, blobs: blobs, r: r}
}

func (e *testEnv) createUser(t *testing.T, name, email, password string) models.User {
	t.Helper()
	hash, err := utils.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := models.User{Name: name, Email: email, PasswordHash: hash}
	if err := e.db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func (e *testEnv) tokenFor(t *testing.T, userID uint) string {
	t.Helper()
	token, err := utils.GenerateToken(testSecret, userID, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return token
}

func (e *testEnv) createPost(t *testing.T, author models.User, title, content string, image *string) models.Post {
	t.Helper()
	post := models.Post{Title: title, Content: content, Image: image, AuthorID: author.ID}
	if err := e.db.Create(&post).Error; err != nil {
		t.Fatalf("seed post: %v", err)
	}
	return post
}

func (e *testEnv) createComment(t *testing.T, author models.User, post models.Post, text string) models.Comment {
	t.Helper()
	comment := models.Comment{Text: text, PostID: post.ID, UserID: author.ID}
	if err := e.db.Create(&comment).Error; err != nil {
		t.Fatalf("seed comment: %v", err)
	}
	return comment
}

// do performs a request against the test router. A non-empty token is sent as
// a bearer Authorization header.
func (e *testEnv) do(t *testing.T, method, path, contentType string, body io.Reader, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func (e *testEnv) doJSON(t *testing.T, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, method, path, "application/json", strings.NewReader(body), token)
}

func (e *testEnv) doForm(t *testing.T, method, path string, form url.Values, token string) *httptest.ResponseRecorder {
	t.Helper()
	return e.do(t, method, path, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()), token)
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope from %q: %v", w.Body.String(), err)
	}
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	env := decodeEnvelope(t, w)
	if env.Status != "success" {
		t.Fatalf("status = %q (message %q), want success", env.Status, env.Message)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
}

func wantStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, want, w.Body.String())
	}
}

func wantError(t *testing.T, w *httptest.ResponseRecorder, status int, messagePart string) {
	t.Helper()
	wantStatus(t, w, status)
	env := decodeEnvelope(t, w)
	if env.Status != "error" {
		t.Errorf("envelope status = %q, want error", env.Status)
	}
	if !strings.Contains(env.Message, messagePart) {
		t.Errorf("message %q should contain %q", env.Message, messagePart)
	}
}

func wantNoContent(t *testing.T, w *httptest.ResponseRecorder) {
	t.Helper()
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204 (body %s)", w.Code, w.Body.String())
	}
	if w.Body.Len() != 0 {
		t.Errorf("204 response should have no body, got %s", w.Body.String())
	}
}
