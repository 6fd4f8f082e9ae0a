// Package linkage contains the product linkage bounded context.
// It owns the product to category link table and the mutation protocol
// around it.
//
// Key concepts:
//   - ProductCategory: link row, unique on (productGid, categoryId)
//   - UnlinkRequest: closed set of unlink variants resolved once at the boundary
//   - MutationResult: counts plus the outcome of the projection rebuild
//   - SourceProduct: upsert-by-sku target for normalized ingestion records
//
// Product gids are opaque; only numeric ids are expanded to the canonical form.
package linkage
