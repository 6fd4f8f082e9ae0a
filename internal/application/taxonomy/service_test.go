package taxonomy

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/domain/fitment"
	"github.com/partscatalog/backend/internal/domain/linkage"
	"github.com/partscatalog/backend/internal/domain/shared"
	"github.com/partscatalog/backend/internal/domain/taxonomy"
	"github.com/partscatalog/backend/internal/infrastructure/persistence"
	"github.com/partscatalog/backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	gidP = "gid://shopify/Product/100"
	gidQ = "gid://shopify/Product/200"
)

// recordingTrigger remembers which products were asked to rebuild
type recordingTrigger struct {
	mu   sync.Mutex
	gids []string
	fail map[string]string
}

func (r *recordingTrigger) Trigger(_ context.Context, gid string) linkage.SyncStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gids = append(r.gids, gid)
	if msg, ok := r.fail[gid]; ok {
		return linkage.SyncStatus{Error: msg}
	}
	return linkage.SyncStatus{OK: true}
}

type services struct {
	categories *CategoryService
	terms      *FitTermService
	links      *persistence.GormProductCategoryRepository
	fitments   *persistence.GormFitmentRepository
	trigger    *recordingTrigger
}

func newServices(t *testing.T) *services {
	t.Helper()
	db := testutil.NewTestDB(t)
	s := &services{
		links:    persistence.NewGormProductCategoryRepository(db),
		fitments: persistence.NewGormFitmentRepository(db),
		trigger:  &recordingTrigger{fail: map[string]string{}},
	}
	s.categories = NewCategoryService(persistence.NewGormCategoryRepository(db), s.links, s.trigger, nil)
	s.terms = NewFitTermService(persistence.NewGormFitTermRepository(db), s.fitments, nil)
	return s
}

func (s *services) mustCategory(t *testing.T, title string, parent *CategoryResponse) *CategoryResponse {
	t.Helper()
	req := CreateCategoryRequest{Title: title}
	if parent != nil {
		req.ParentID = &parent.ID
	}
	c, err := s.categories.Create(context.Background(), req)
	require.NoError(t, err)
	return c
}

func TestCategoryService_CreateAndTree(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)

	exhaust := s.mustCategory(t, "Exhaust", nil)
	assert.Equal(t, "exhaust", exhaust.Slug)
	s.mustCategory(t, "Downpipes", exhaust)
	s.mustCategory(t, "Cat-back Systems", exhaust)
	s.mustCategory(t, "Brakes", nil)

	t.Run("duplicate slug", func(t *testing.T) {
		_, err := s.categories.Create(ctx, CreateCategoryRequest{Title: "Exhaust"})
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("unknown parent", func(t *testing.T) {
		missing := uuid.New()
		_, err := s.categories.Create(ctx, CreateCategoryRequest{Title: "Orphan", ParentID: &missing})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, shared.CodeInvalidParent, de.Code)
	})

	t.Run("tree orders siblings by title", func(t *testing.T) {
		tree, err := s.categories.Tree(ctx)
		require.NoError(t, err)
		require.Len(t, tree, 2)
		assert.Equal(t, "Brakes", tree[0].Title)
		assert.Equal(t, "Exhaust", tree[1].Title)
		require.Len(t, tree[1].Children, 2)
		assert.Equal(t, "Cat-back Systems", tree[1].Children[0].Title)
		assert.Equal(t, "Downpipes", tree[1].Children[1].Title)
	})
}

func TestCategoryService_AncestorSlugs(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)
	exhaust := s.mustCategory(t, "Exhaust", nil)
	downpipes := s.mustCategory(t, "Downpipes", exhaust)
	catted := s.mustCategory(t, "Catted", downpipes)

	slugs, err := s.categories.AncestorSlugs(ctx, catted.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"catted", "downpipes", "exhaust"}, slugs)

	_, err = s.categories.AncestorSlugs(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCategoryService_Move(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)
	exhaust := s.mustCategory(t, "Exhaust", nil)
	downpipes := s.mustCategory(t, "Downpipes", exhaust)
	catted := s.mustCategory(t, "Catted", downpipes)
	intake := s.mustCategory(t, "Intake", nil)
	_, err := s.links.Append(ctx, gidP, []uuid.UUID{catted.ID})
	require.NoError(t, err)
	_, err = s.links.Append(ctx, gidQ, []uuid.UUID{intake.ID})
	require.NoError(t, err)

	t.Run("under own descendant is rejected", func(t *testing.T) {
		_, err := s.categories.Move(ctx, exhaust.ID, MoveCategoryRequest{ParentID: &catted.ID})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, shared.CodeCircularReference, de.Code)
	})

	t.Run("onto itself is rejected", func(t *testing.T) {
		_, err := s.categories.Move(ctx, exhaust.ID, MoveCategoryRequest{ParentID: &exhaust.ID})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, shared.CodeSelfParent, de.Code)
	})

	t.Run("valid move rebuilds products beneath", func(t *testing.T) {
		resp, err := s.categories.Move(ctx, downpipes.ID, MoveCategoryRequest{ParentID: &intake.ID})
		require.NoError(t, err)
		require.NotNil(t, resp.Category.ParentID)
		assert.Equal(t, intake.ID, *resp.Category.ParentID)
		assert.Equal(t, 1, resp.Sync.Products)
		assert.Equal(t, []string{gidP}, s.trigger.gids)

		slugs, err := s.categories.AncestorSlugs(ctx, catted.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"catted", "downpipes", "intake"}, slugs)
	})
}

func TestCategoryService_UpdateSlugTriggersRebuild(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)
	exhaust := s.mustCategory(t, "Exhaust", nil)
	downpipes := s.mustCategory(t, "Downpipes", exhaust)
	_, err := s.links.Append(ctx, gidP, []uuid.UUID{downpipes.ID})
	require.NoError(t, err)
	s.trigger.fail[gidP] = "catalogapi: rate limited"

	t.Run("title only does not rebuild", func(t *testing.T) {
		title := "Exhaust Systems"
		resp, err := s.categories.Update(ctx, exhaust.ID, UpdateCategoryRequest{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "Exhaust Systems", resp.Category.Title)
		assert.Zero(t, resp.Sync.Products)
		assert.Empty(t, s.trigger.gids)
	})

	t.Run("slug change rebuilds descendants and reports failures", func(t *testing.T) {
		slug := "exhaust-systems"
		resp, err := s.categories.Update(ctx, exhaust.ID, UpdateCategoryRequest{Slug: &slug})
		require.NoError(t, err)
		assert.Equal(t, "exhaust-systems", resp.Category.Slug)
		assert.Equal(t, 1, resp.Sync.Products)
		require.Len(t, resp.Sync.Failed, 1)
		assert.Equal(t, gidP, resp.Sync.Failed[0].ProductGID)
	})

	t.Run("slug taken by another category", func(t *testing.T) {
		slug := "downpipes"
		_, err := s.categories.Update(ctx, exhaust.ID, UpdateCategoryRequest{Slug: &slug})
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("malformed slug", func(t *testing.T) {
		slug := "Not A Slug"
		_, err := s.categories.Update(ctx, exhaust.ID, UpdateCategoryRequest{Slug: &slug})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, shared.CodeInvalidSlug, de.Code)
	})
}

func TestCategoryService_Delete(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)
	exhaust := s.mustCategory(t, "Exhaust", nil)
	downpipes := s.mustCategory(t, "Downpipes", exhaust)
	_, err := s.links.Append(ctx, gidP, []uuid.UUID{downpipes.ID, exhaust.ID})
	require.NoError(t, err)

	_, err = s.categories.Delete(ctx, exhaust.ID)
	assert.ErrorIs(t, err, shared.ErrHasChildren)
	ids, err := s.links.CategoryIDs(ctx, gidP)
	require.NoError(t, err)
	assert.Len(t, ids, 2, "a refused delete leaves every link in place")
	assert.Empty(t, s.trigger.gids)

	resp, err := s.categories.Delete(ctx, downpipes.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Sync.Products)
	assert.Equal(t, []string{gidP}, s.trigger.gids)

	ids, err = s.links.CategoryIDs(ctx, gidP)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{exhaust.ID}, ids)

	_, err = s.categories.Get(ctx, downpipes.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	resp, err = s.categories.Delete(ctx, exhaust.ID)
	require.NoError(t, err, "childless after the child is gone")
	assert.Equal(t, 1, resp.Sync.Products)
}

func TestFitTermService_Create(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)

	honda, err := s.terms.Create(ctx, CreateFitTermRequest{Type: "MAKE", Name: "Honda"})
	require.NoError(t, err)
	civic, err := s.terms.Create(ctx, CreateFitTermRequest{Type: "MODEL", Name: "Civic", ParentID: &honda.ID})
	require.NoError(t, err)

	t.Run("model without parent fails", func(t *testing.T) {
		_, err := s.terms.Create(ctx, CreateFitTermRequest{Type: "MODEL", Name: "Civic"})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, shared.CodeParentRequired, de.Code)
	})

	t.Run("trim under model succeeds", func(t *testing.T) {
		si, err := s.terms.Create(ctx, CreateFitTermRequest{Type: "TRIM", Name: "Si", ParentID: &civic.ID})
		require.NoError(t, err)

		t.Run("model under trim fails without a row", func(t *testing.T) {
			_, err := s.terms.Create(ctx, CreateFitTermRequest{Type: "MODEL", Name: "Accord", ParentID: &si.ID})
			var de *shared.DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, shared.CodeInvalidParentType, de.Code)

			tree, err := s.terms.Tree(ctx, nil)
			require.NoError(t, err)
			require.Len(t, tree, 1)
			require.Len(t, tree[0].Children, 1)
			assert.Empty(t, tree[0].Children[0].Children[0].Children)
		})
	})

	t.Run("chassis without parent is a root", func(t *testing.T) {
		_, err := s.terms.Create(ctx, CreateFitTermRequest{Type: "CHASSIS", Name: "FK8"})
		require.NoError(t, err)

		tree, err := s.terms.Tree(ctx, nil)
		require.NoError(t, err)
		assert.Len(t, tree, 2)

		chassis := taxonomy.FitTermChassis
		tree, err = s.terms.Tree(ctx, &chassis)
		require.NoError(t, err)
		require.Len(t, tree, 1)
		assert.Equal(t, "FK8", tree[0].Name)
	})

	t.Run("same name under another parent is allowed", func(t *testing.T) {
		acura, err := s.terms.Create(ctx, CreateFitTermRequest{Type: "MAKE", Name: "Acura"})
		require.NoError(t, err)
		_, err = s.terms.Create(ctx, CreateFitTermRequest{Type: "MODEL", Name: "Civic", ParentID: &acura.ID})
		require.NoError(t, err)

		_, err = s.terms.Create(ctx, CreateFitTermRequest{Type: "MODEL", Name: "Civic", ParentID: &honda.ID})
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	})

	t.Run("unknown parent", func(t *testing.T) {
		missing := uuid.New()
		_, err := s.terms.Create(ctx, CreateFitTermRequest{Type: "MODEL", Name: "Jazz", ParentID: &missing})
		var de *shared.DomainError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, shared.CodeInvalidParent, de.Code)
	})
}

func TestFitTermService_DeleteAndDescendants(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)
	honda, err := s.terms.Create(ctx, CreateFitTermRequest{Type: "MAKE", Name: "Honda"})
	require.NoError(t, err)
	toyota, err := s.terms.Create(ctx, CreateFitTermRequest{Type: "MAKE", Name: "Toyota"})
	require.NoError(t, err)
	civic, err := s.terms.Create(ctx, CreateFitTermRequest{Type: "MODEL", Name: "Civic", ParentID: &honda.ID})
	require.NoError(t, err)
	si, err := s.terms.Create(ctx, CreateFitTermRequest{Type: "TRIM", Name: "Si", ParentID: &civic.ID})
	require.NoError(t, err)

	under, err := s.terms.IsDescendantOf(ctx, si.ID, honda.ID)
	require.NoError(t, err)
	assert.True(t, under)
	under, err = s.terms.IsDescendantOf(ctx, si.ID, toyota.ID)
	require.NoError(t, err)
	assert.False(t, under)

	sel, err := s.terms.ResetSelection(ctx, ResetSelectionRequest{
		Selection: taxonomy.Selection{MakeID: &honda.ID, ModelID: &civic.ID, TrimID: &si.ID},
		MakeID:    toyota.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, toyota.ID, *sel.MakeID)
	assert.Nil(t, sel.ModelID)
	assert.Nil(t, sel.TrimID)

	assert.ErrorIs(t, s.terms.Delete(ctx, honda.ID), shared.ErrHasChildren)
	require.NoError(t, s.terms.Delete(ctx, si.ID))
	assert.ErrorIs(t, s.terms.Delete(ctx, si.ID), shared.ErrNotFound)
}

func TestFitTermService_RenameReportsOrphans(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)
	honda, err := s.terms.Create(ctx, CreateFitTermRequest{Type: "MAKE", Name: "Honda"})
	require.NoError(t, err)
	_, err = s.terms.Create(ctx, CreateFitTermRequest{Type: "MAKE", Name: "Acura"})
	require.NoError(t, err)

	row, err := fitment.NewProductFitment(fitment.Key{ProductGID: gidP, Make: "honda", Model: "Civic"})
	require.NoError(t, err)
	require.NoError(t, s.fitments.Create(ctx, row))

	resp, err := s.terms.Rename(ctx, honda.ID, RenameFitTermRequest{Name: "Honda Motor"})
	require.NoError(t, err)
	assert.Equal(t, "Honda", resp.PreviousName)
	assert.Equal(t, "Honda Motor", resp.Term.Name)
	assert.Equal(t, int64(1), resp.OrphanedFitment)

	_, err = s.terms.Rename(ctx, honda.ID, RenameFitTermRequest{Name: "Acura"})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestFitTermService_RenameCountsWithinMake(t *testing.T) {
	ctx := context.Background()
	s := newServices(t)
	honda, err := s.terms.Create(ctx, CreateFitTermRequest{Type: "MAKE", Name: "Honda"})
	require.NoError(t, err)
	civic, err := s.terms.Create(ctx, CreateFitTermRequest{Type: "MODEL", Name: "Civic", ParentID: &honda.ID})
	require.NoError(t, err)

	for _, key := range []fitment.Key{
		{ProductGID: gidP, Make: "Honda", Model: "Civic"},
		{ProductGID: gidP, Make: "Kit Car Co", Model: "Civic"},
		{ProductGID: gidP, Make: "Kit Car Co", Model: "civic", YearFrom: intPtr(2001)},
	} {
		row, err := fitment.NewProductFitment(key)
		require.NoError(t, err)
		require.NoError(t, s.fitments.Create(ctx, row))
	}

	resp, err := s.terms.Rename(ctx, civic.ID, RenameFitTermRequest{Name: "Civic Type R"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.OrphanedFitment, "rows under other makes are not counted")
}

func intPtr(v int) *int { return &v }
