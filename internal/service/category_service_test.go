package service

import (
	"context"
	"database/sql"
	"sort"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/blog-api/internal/models"
	appErrors "github.com/noah-isme/blog-api/pkg/errors"
)

type mockCategoryRepo struct {
	categories map[string]*models.Category
	nextID     int
}

func newMockCategoryRepo() *mockCategoryRepo {
	return &mockCategoryRepo{categories: make(map[string]*models.Category)}
}

func (m *mockCategoryRepo) List(ctx context.Context, filter models.CategoryFilter) ([]models.Category, int, error) {
	ids := make([]string, 0, len(m.categories))
	for id := range m.categories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]models.Category, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m.categories[id])
	}
	return out, len(out), nil
}

func (m *mockCategoryRepo) FindByID(ctx context.Context, id string) (*models.Category, error) {
	if category, ok := m.categories[id]; ok {
		copied := *category
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockCategoryRepo) Create(ctx context.Context, category *models.Category) error {
	if category.ID == "" {
		m.nextID++
		category.ID = "cat-" + string(rune('a'+m.nextID))
	}
	stored := *category
	m.categories[category.ID] = &stored
	return nil
}

func (m *mockCategoryRepo) Update(ctx context.Context, category *models.Category) error {
	stored := *category
	m.categories[category.ID] = &stored
	return nil
}

func (m *mockCategoryRepo) Delete(ctx context.Context, id string) error {
	delete(m.categories, id)
	return nil
}

func (m *mockCategoryRepo) DeleteMany(ctx context.Context, ids []string) error {
	for _, id := range ids {
		delete(m.categories, id)
	}
	return nil
}

type mockCategoryPosts struct {
	summaries map[string][]models.PostSummary
	cascaded  []string
}

func (m *mockCategoryPosts) DeleteByCategoryID(ctx context.Context, categoryID string) error {
	m.cascaded = append(m.cascaded, categoryID)
	delete(m.summaries, categoryID)
	return nil
}

func (m *mockCategoryPosts) SummariesByCategoryIDs(ctx context.Context, categoryIDs []string) ([]models.PostSummary, error) {
	var out []models.PostSummary
	for _, id := range categoryIDs {
		out = append(out, m.summaries[id]...)
	}
	return out, nil
}

func newCategoryService(repo *mockCategoryRepo, posts *mockCategoryPosts) *CategoryService {
	if posts == nil {
		posts = &mockCategoryPosts{summaries: make(map[string][]models.PostSummary)}
	}
	return NewCategoryService(repo, posts, nil, validator.New(), zap.NewNop())
}

func TestCategoryListPreloadsPosts(t *testing.T) {
	repo := newMockCategoryRepo()
	require.NoError(t, repo.Create(context.Background(), &models.Category{ID: "c1", Name: "Go", Description: "golang", Status: 1}))
	require.NoError(t, repo.Create(context.Background(), &models.Category{ID: "c2", Name: "Rust", Description: "rustlang", Status: 1}))
	posts := &mockCategoryPosts{summaries: map[string][]models.PostSummary{
		"c1": {{ID: "p1", Title: "Intro", OwnerID: "c1"}},
	}}
	svc := newCategoryService(repo, posts)

	categories, pagination, err := svc.List(context.Background(), models.CategoryFilter{Page: 1, ItemsPerPage: 10})
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Len(t, categories[0].Posts, 1)
	assert.Empty(t, categories[1].Posts)
	assert.Equal(t, 2, pagination.Total)
}

func TestCategoryCreateDefaultsStatus(t *testing.T) {
	repo := newMockCategoryRepo()
	svc := newCategoryService(repo, nil)

	category, err := svc.Create(context.Background(), CategoryRequest{Name: "Go", Description: "golang"})
	require.NoError(t, err)
	assert.Equal(t, 1, category.Status)
}

func TestCategoryCreateValidation(t *testing.T) {
	svc := newCategoryService(newMockCategoryRepo(), nil)

	_, err := svc.Create(context.Background(), CategoryRequest{Name: "", Description: ""})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCategoryUpdateUnknownID(t *testing.T) {
	svc := newCategoryService(newMockCategoryRepo(), nil)

	_, err := svc.Update(context.Background(), "missing", CategoryRequest{Name: "Go", Description: "golang"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCategoryDeleteCascadesPosts(t *testing.T) {
	repo := newMockCategoryRepo()
	require.NoError(t, repo.Create(context.Background(), &models.Category{ID: "c1", Name: "Go", Description: "golang", Status: 1}))
	posts := &mockCategoryPosts{summaries: map[string][]models.PostSummary{"c1": {{ID: "p1", OwnerID: "c1"}}}}
	svc := newCategoryService(repo, posts)

	require.NoError(t, svc.Delete(context.Background(), "c1"))
	assert.Equal(t, []string{"c1"}, posts.cascaded)
	_, err := repo.FindByID(context.Background(), "c1")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCategoryDeleteManyCascades(t *testing.T) {
	repo := newMockCategoryRepo()
	require.NoError(t, repo.Create(context.Background(), &models.Category{ID: "c1", Name: "Go", Description: "golang", Status: 1}))
	require.NoError(t, repo.Create(context.Background(), &models.Category{ID: "c2", Name: "Rust", Description: "rustlang", Status: 1}))
	posts := &mockCategoryPosts{summaries: make(map[string][]models.PostSummary)}
	svc := newCategoryService(repo, posts)

	require.NoError(t, svc.DeleteMany(context.Background(), []string{"c1", "c2"}))
	assert.ElementsMatch(t, []string{"c1", "c2"}, posts.cascaded)
	assert.Empty(t, repo.categories)
}
