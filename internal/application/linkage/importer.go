package linkage

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/partscatalog/backend/internal/domain/fitment"
	"github.com/partscatalog/backend/internal/domain/linkage"
	"github.com/partscatalog/backend/internal/domain/shared"
	"github.com/partscatalog/backend/internal/domain/taxonomy"
	"go.uber.org/zap"
)

// ImporterConfig controls how ingestion resolves category paths
type ImporterConfig struct {
	// CreateMissingCategories creates path levels that do not exist yet
	CreateMissingCategories bool
	GIDPrefix               string
}

// Importer upserts normalized distributor records and links them
type Importer struct {
	sourceRepo   linkage.SourceProductRepository
	categoryRepo taxonomy.CategoryRepository
	trigger      linkage.RebuildTrigger
	validate     *validator.Validate
	config       ImporterConfig
	logger       *zap.Logger
}

// NewImporter creates a new Importer
func NewImporter(
	sourceRepo linkage.SourceProductRepository,
	categoryRepo taxonomy.CategoryRepository,
	trigger linkage.RebuildTrigger,
	config ImporterConfig,
	logger *zap.Logger,
) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.GIDPrefix == "" {
		config.GIDPrefix = linkage.DefaultProductGIDPrefix
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Importer{
		sourceRepo:   sourceRepo,
		categoryRepo: categoryRepo,
		trigger:      trigger,
		validate:     v,
		config:       config,
		logger:       logger,
	}
}

// Import processes records in order. A bad record is reported and skipped
// with nothing of it stored; the rest of the batch continues. Each linked
// product is rebuilt once at the end.
func (i *Importer) Import(ctx context.Context, records []ImportRecord) ImportReport {
	report := ImportReport{Total: len(records), Failed: []ImportFailure{}}
	touched := make(map[string]struct{})
	var order []string

	for idx, rec := range records {
		if ctx.Err() != nil {
			report.Failed = append(report.Failed, ImportFailure{Index: idx, SKU: rec.SKU, Error: ctx.Err().Error()})
			continue
		}
		gid, err := i.importOne(ctx, rec)
		if err != nil {
			report.Failed = append(report.Failed, ImportFailure{Index: idx, SKU: rec.SKU, Error: err.Error()})
			continue
		}
		report.Imported++
		if gid == "" {
			continue
		}
		report.Linked++
		if _, ok := touched[gid]; !ok {
			touched[gid] = struct{}{}
			order = append(order, gid)
		}
	}

	for _, gid := range order {
		if status := i.trigger.Trigger(ctx, gid); !status.OK {
			report.SyncFailed = append(report.SyncFailed, gid)
		}
	}

	i.logger.Info("Import finished",
		zap.Int("total", report.Total),
		zap.Int("imported", report.Imported),
		zap.Int("linked", report.Linked),
		zap.Int("failed", len(report.Failed)),
	)
	return report
}

// importOne stores one record and returns the product gid it was linked
// under, or "" when the record has no known product yet.
func (i *Importer) importOne(ctx context.Context, rec ImportRecord) (string, error) {
	if err := i.validate.Struct(rec); err != nil {
		return "", describeValidation(err)
	}

	product, err := linkage.NewSourceProduct(rec.SKU, rec.Title)
	if err != nil {
		return "", err
	}
	product.Description = rec.Description
	product.Price = rec.Price
	product.ImageURL = rec.ImageURL
	product.CategoryPath = rec.CategoryPath

	if strings.TrimSpace(rec.ProductGID) != "" {
		gid, err := linkage.NormalizeProductGIDWithPrefix(rec.ProductGID, i.config.GIDPrefix)
		if err != nil {
			return "", err
		}
		product.ProductGID = &gid
	} else {
		existing, err := i.sourceRepo.FindBySKU(ctx, product.SKU)
		switch {
		case err == nil:
			product.ProductGID = existing.ProductGID
		case !errors.Is(err, shared.ErrNotFound):
			return "", err
		}
	}

	if product.ProductGID == nil {
		if err := i.sourceRepo.Upsert(ctx, product); err != nil {
			return "", fmt.Errorf("upsert source product: %w", err)
		}
		return "", nil
	}
	gid := *product.ProductGID

	var row *fitment.ProductFitment
	if rec.Make != "" && rec.Model != "" {
		row, err = fitment.NewProductFitment(fitment.Key{
			ProductGID: gid,
			Make:       rec.Make,
			Model:      rec.Model,
			YearFrom:   rec.YearFrom,
			YearTo:     rec.YearTo,
		})
		if err != nil {
			return "", err
		}
	}

	var categoryID *uuid.UUID
	if levels := linkage.SplitCategoryPath(rec.CategoryPath); len(levels) > 0 {
		id, err := i.resolvePath(ctx, levels)
		if err != nil {
			return "", err
		}
		categoryID = &id
	}

	if err := i.sourceRepo.UpsertLinked(ctx, product, categoryID, row); err != nil {
		return "", fmt.Errorf("store record: %w", err)
	}
	return gid, nil
}

// resolvePath walks "Exhaust > Downpipes" level by level, matching each
// level against the children of the previous one by title or slug.
func (i *Importer) resolvePath(ctx context.Context, levels []string) (uuid.UUID, error) {
	var parentID *uuid.UUID
	for depth, level := range levels {
		children, err := i.categoryRepo.FindChildren(ctx, parentID)
		if err != nil {
			return uuid.Nil, err
		}
		match := matchLevel(children, level)
		if match == nil {
			if !i.config.CreateMissingCategories {
				return uuid.Nil, shared.NewDomainErrorf(shared.CodeInvalidInput,
					"Category %q not found at level %d of %q", level, depth+1,
					strings.Join(levels, " "+linkage.CategoryPathSeparator+" "))
			}
			if match, err = i.createLevel(ctx, level, parentID); err != nil {
				return uuid.Nil, err
			}
		}
		id := match.ID
		parentID = &id
	}
	return *parentID, nil
}

func (i *Importer) createLevel(ctx context.Context, title string, parentID *uuid.UUID) (*taxonomy.Category, error) {
	category, err := taxonomy.NewCategory(title, "", parentID)
	if err != nil {
		return nil, err
	}
	exists, err := i.categoryRepo.ExistsBySlug(ctx, category.Slug, nil)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainErrorf(shared.CodeAlreadyExists,
			"Cannot create category %q: slug %q is used elsewhere in the tree", title, category.Slug)
	}
	if err := i.categoryRepo.Save(ctx, category); err != nil {
		return nil, err
	}
	i.logger.Info("Created category during import",
		zap.String("title", category.Title), zap.String("slug", category.Slug))
	return category, nil
}

func matchLevel(children []taxonomy.Category, level string) *taxonomy.Category {
	slug := taxonomy.Slugify(level)
	for idx := range children {
		c := &children[idx]
		if strings.EqualFold(c.Title, level) || c.Slug == slug {
			return c
		}
	}
	return nil
}

func describeValidation(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return shared.NewDomainError(shared.CodeInvalidInput, "Invalid record: "+strings.Join(parts, ", "))
}
