package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/blog-api/internal/models"
	appErrors "github.com/noah-isme/blog-api/pkg/errors"
)

type mockPostRepo struct {
	posts  map[string]*models.Post
	nextID int
}

func newMockPostRepo() *mockPostRepo {
	return &mockPostRepo{posts: make(map[string]*models.Post)}
}

func (m *mockPostRepo) List(ctx context.Context, filter models.PostFilter) ([]models.PostDetail, int, error) {
	ids := make([]string, 0, len(m.posts))
	for id := range m.posts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]models.PostDetail, 0, len(ids))
	for _, id := range ids {
		post := m.posts[id]
		if filter.Search != "" && !strings.Contains(post.Title, filter.Search) && !strings.Contains(post.Description, filter.Search) {
			continue
		}
		out = append(out, models.PostDetail{
			Post:     *post,
			User:     models.PostAuthor{ID: post.UserID, Email: "author@x.com", FirstName: "Ada", LastName: "Lovelace"},
			Category: models.CategoryRef{ID: post.CategoryID, Name: "Go"},
		})
	}
	return out, len(out), nil
}

func (m *mockPostRepo) FindByID(ctx context.Context, id string) (*models.Post, error) {
	if post, ok := m.posts[id]; ok {
		copied := *post
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockPostRepo) FindDetailByID(ctx context.Context, id string) (*models.PostDetail, error) {
	post, ok := m.posts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.PostDetail{
		Post:     *post,
		User:     models.PostAuthor{ID: post.UserID, Email: "author@x.com", FirstName: "Ada", LastName: "Lovelace"},
		Category: models.CategoryRef{ID: post.CategoryID, Name: "Go"},
	}, nil
}

func (m *mockPostRepo) Create(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		m.nextID++
		post.ID = "post-" + string(rune('a'+m.nextID))
	}
	stored := *post
	m.posts[post.ID] = &stored
	return nil
}

func (m *mockPostRepo) Update(ctx context.Context, post *models.Post) error {
	stored := *post
	m.posts[post.ID] = &stored
	return nil
}

func (m *mockPostRepo) Delete(ctx context.Context, id string) error {
	delete(m.posts, id)
	return nil
}

func (m *mockPostRepo) DeleteMany(ctx context.Context, ids []string) error {
	for _, id := range ids {
		delete(m.posts, id)
	}
	return nil
}

type mockCategoryFinder struct {
	known map[string]bool
}

func (m *mockCategoryFinder) FindByID(ctx context.Context, id string) (*models.Category, error) {
	if m.known[id] {
		return &models.Category{ID: id, Name: "Go", Description: "golang", Status: 1}, nil
	}
	return nil, sql.ErrNoRows
}

func newPostService(repo *mockPostRepo, files *mockFiles) *PostService {
	if files == nil {
		files = &mockFiles{}
	}
	categories := &mockCategoryFinder{known: map[string]bool{"c1": true}}
	return NewPostService(repo, categories, files, nil, validator.New(), zap.NewNop())
}

func seedPost(t *testing.T, repo *mockPostRepo, id, title, thumbnail string) {
	t.Helper()
	require.NoError(t, repo.Create(context.Background(), &models.Post{
		ID: id, Title: title, Description: "body", Thumbnail: thumbnail,
		Status: 1, UserID: "u1", CategoryID: "c1",
	}))
}

func TestPostCreateUnknownCategory(t *testing.T) {
	svc := newPostService(newMockPostRepo(), nil)

	_, err := svc.Create(context.Background(), CreatePostRequest{
		Title: "T", Description: "D", CategoryID: "missing", UserID: "u1", Thumbnail: "thumbnail/1.png",
	})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
	assert.Equal(t, "category not found", appErr.Message)
}

func TestPostCreateRequiresThumbnail(t *testing.T) {
	svc := newPostService(newMockPostRepo(), nil)

	_, err := svc.Create(context.Background(), CreatePostRequest{
		Title: "T", Description: "D", CategoryID: "c1", UserID: "u1",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestPostCreateDefaultsStatus(t *testing.T) {
	repo := newMockPostRepo()
	svc := newPostService(repo, nil)

	post, err := svc.Create(context.Background(), CreatePostRequest{
		Title: "T", Description: "D", CategoryID: "c1", UserID: "u1", Thumbnail: "thumbnail/1.png",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, post.Status)
	assert.Equal(t, "u1", post.UserID)
}

func TestPostUpdateReplacesThumbnailFile(t *testing.T) {
	repo := newMockPostRepo()
	seedPost(t, repo, "p1", "Old", "thumbnail/old.png")
	files := &mockFiles{}
	svc := newPostService(repo, files)

	post, err := svc.Update(context.Background(), "p1", UpdatePostRequest{
		Title: "New", Description: "D", CategoryID: "c1", Thumbnail: "thumbnail/new.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "thumbnail/new.png", post.Thumbnail)
	assert.Equal(t, []string{"thumbnail/old.png"}, files.removed)
}

func TestPostUpdateKeepsThumbnailWhenOmitted(t *testing.T) {
	repo := newMockPostRepo()
	seedPost(t, repo, "p1", "Old", "thumbnail/old.png")
	files := &mockFiles{}
	svc := newPostService(repo, files)

	post, err := svc.Update(context.Background(), "p1", UpdatePostRequest{
		Title: "New", Description: "D", CategoryID: "c1",
	})
	require.NoError(t, err)
	assert.Equal(t, "thumbnail/old.png", post.Thumbnail)
	assert.Empty(t, files.removed)
}

func TestPostDeleteRemovesThumbnail(t *testing.T) {
	repo := newMockPostRepo()
	seedPost(t, repo, "p1", "T", "thumbnail/1.png")
	files := &mockFiles{}
	svc := newPostService(repo, files)

	require.NoError(t, svc.Delete(context.Background(), "p1"))
	assert.Equal(t, []string{"thumbnail/1.png"}, files.removed)
	_, err := repo.FindByID(context.Background(), "p1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestPostListFiltersBySearch(t *testing.T) {
	repo := newMockPostRepo()
	seedPost(t, repo, "p1", "Go concurrency", "thumbnail/1.png")
	seedPost(t, repo, "p2", "Rust ownership", "thumbnail/2.png")
	svc := newPostService(repo, nil)

	posts, pagination, err := svc.List(context.Background(), models.PostFilter{Search: "Go", Page: 1, ItemsPerPage: 10})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "Go concurrency", posts[0].Title)
	assert.Equal(t, 1, pagination.Total)
}

func TestPostExportCSV(t *testing.T) {
	repo := newMockPostRepo()
	seedPost(t, repo, "p1", "Go concurrency", "thumbnail/1.png")
	svc := newPostService(repo, nil)

	result, err := svc.Export(context.Background(), models.PostFilter{Page: 1, ItemsPerPage: 100}, "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "posts.csv", result.Filename)
	content := string(result.Content)
	assert.Contains(t, content, "ID,Title,Description,Status,Author,Category,Created At")
	assert.Contains(t, content, "Go concurrency")
	assert.Contains(t, content, "Ada Lovelace")
}

func TestPostExportPDF(t *testing.T) {
	repo := newMockPostRepo()
	seedPost(t, repo, "p1", "Go concurrency", "thumbnail/1.png")
	svc := newPostService(repo, nil)

	result, err := svc.Export(context.Background(), models.PostFilter{Page: 1, ItemsPerPage: 100}, "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Content), "%PDF"))
}

func TestPostExportUnsupportedFormat(t *testing.T) {
	svc := newPostService(newMockPostRepo(), nil)

	_, err := svc.Export(context.Background(), models.PostFilter{}, "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
