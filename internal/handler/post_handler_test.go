package handler

import (
	"bytes"
	"context"
	"database/sql"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	internalmiddleware "github.com/noah-isme/blog-api/internal/middleware"
	"github.com/noah-isme/blog-api/internal/models"
	"github.com/noah-isme/blog-api/internal/service"
	"github.com/noah-isme/blog-api/pkg/storage"
)

type postRepoStub struct {
	posts map[string]*models.Post
}

func (s *postRepoStub) List(ctx context.Context, filter models.PostFilter) ([]models.PostDetail, int, error) {
	out := make([]models.PostDetail, 0, len(s.posts))
	for _, post := range s.posts {
		out = append(out, models.PostDetail{
			Post:     *post,
			User:     models.PostAuthor{ID: post.UserID, Email: "a@x.com", FirstName: "Ada", LastName: "Lovelace"},
			Category: models.CategoryRef{ID: post.CategoryID, Name: "Go"},
		})
	}
	return out, len(out), nil
}

func (s *postRepoStub) FindByID(ctx context.Context, id string) (*models.Post, error) {
	if post, ok := s.posts[id]; ok {
		copied := *post
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *postRepoStub) FindDetailByID(ctx context.Context, id string) (*models.PostDetail, error) {
	post, ok := s.posts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.PostDetail{Post: *post}, nil
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = "p1"
	}
	s.posts[post.ID] = post
	return nil
}

func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	s.posts[post.ID] = post
	return nil
}

func (s *postRepoStub) Delete(ctx context.Context, id string) error {
	delete(s.posts, id)
	return nil
}

func (s *postRepoStub) DeleteMany(ctx context.Context, ids []string) error {
	for _, id := range ids {
		delete(s.posts, id)
	}
	return nil
}

type categoryFinderStub struct {
	known map[string]bool
}

func (s categoryFinderStub) FindByID(ctx context.Context, id string) (*models.Category, error) {
	if s.known[id] {
		return &models.Category{ID: id, Name: "Go", Status: 1}, nil
	}
	return nil, sql.ErrNoRows
}

func buildPostRouter(t *testing.T, repo *postRepoStub) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	uploads, err := storage.NewUploadStorage(t.TempDir(), []string{".jpg", ".jpeg", ".png"}, 5*1024*1024)
	require.NoError(t, err)

	categories := categoryFinderStub{known: map[string]bool{"c1": true}}
	svc := service.NewPostService(repo, categories, filesStub{}, nil, validator.New(), zap.NewNop())
	h := NewPostHandler(svc, uploads)

	router := gin.New()
	router.Use(func(c *gin.Context) {
		c.Set(internalmiddleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Email: "a@x.com"})
		c.Next()
	})
	posts := router.Group("/posts")
	posts.GET("", h.List)
	posts.GET("/export", h.Export)
	posts.GET("/:id", h.Get)
	posts.POST("", h.Create)
	posts.PUT("/:id", h.Update)
	posts.DELETE("/multiple", h.DeleteMany)
	posts.DELETE("/:id", h.Delete)
	return router
}

func multipartPost(t *testing.T, fields map[string]string, fileField, fileName string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if fileField != "" {
		part, err := writer.CreateFormFile(fileField, fileName)
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG\r\n"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestPostCreateWithThumbnail(t *testing.T) {
	repo := &postRepoStub{posts: make(map[string]*models.Post)}
	router := buildPostRouter(t, repo)

	body, contentType := multipartPost(t, map[string]string{
		"title": "Go concurrency", "description": "channels", "category_id": "c1",
	}, "thumbnail", "cover.png")

	req, _ := http.NewRequest(http.MethodPost, "/posts", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Len(t, repo.posts, 1)
	for _, post := range repo.posts {
		assert.Equal(t, "u1", post.UserID)
		assert.Contains(t, post.Thumbnail, "thumbnail/")
	}
}

func TestPostCreateMissingThumbnail(t *testing.T) {
	router := buildPostRouter(t, &postRepoStub{posts: make(map[string]*models.Post)})

	body, contentType := multipartPost(t, map[string]string{
		"title": "T", "description": "D", "category_id": "c1",
	}, "", "")

	req, _ := http.NewRequest(http.MethodPost, "/posts", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "thumbnail file is required")
}

func TestPostCreateUnknownCategoryReturns404(t *testing.T) {
	router := buildPostRouter(t, &postRepoStub{posts: make(map[string]*models.Post)})

	body, contentType := multipartPost(t, map[string]string{
		"title": "T", "description": "D", "category_id": "missing",
	}, "thumbnail", "cover.png")

	req, _ := http.NewRequest(http.MethodPost, "/posts", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "category not found")
}

func TestPostExportCSVDownload(t *testing.T) {
	repo := &postRepoStub{posts: map[string]*models.Post{
		"p1": {ID: "p1", Title: "Go concurrency", Description: "channels", Thumbnail: "thumbnail/1.png", Status: 1, UserID: "u1", CategoryID: "c1"},
	}}
	router := buildPostRouter(t, repo)

	req, _ := http.NewRequest(http.MethodGet, "/posts/export?format=csv", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "posts.csv")
	assert.Contains(t, w.Body.String(), "Go concurrency")
}

func TestPostExportBadFormat(t *testing.T) {
	router := buildPostRouter(t, &postRepoStub{posts: make(map[string]*models.Post)})

	req, _ := http.NewRequest(http.MethodGet, "/posts/export?format=xlsx", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
