package postgres

// SQL for the sync write path and the catalog read path.

const (
	// queryEnsurePlatform is conflict-free: concurrent runs racing on the
	// same platform name both succeed and read the same id afterwards.
	queryEnsurePlatform = `
		INSERT INTO platforms (name)
		VALUES ($1)
		ON CONFLICT (name) DO NOTHING
	`

	querySelectPlatformID = `SELECT id FROM platforms WHERE name = $1`

	// queryUpsertProduct overwrites every mutable snapshot field
	// unconditionally (last-writer-wins, no staleness check) and refreshes
	// updated_at. RETURNING id serves both the insert and conflict paths.
	queryUpsertProduct = `
		INSERT INTO products (
			platform_id, asin, title, brand, category,
			image_url, product_url, price, review_rating,
			review_count, buybox_price, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (platform_id, asin)
		DO UPDATE SET
			title         = EXCLUDED.title,
			brand         = EXCLUDED.brand,
			category      = EXCLUDED.category,
			image_url     = EXCLUDED.image_url,
			product_url   = EXCLUDED.product_url,
			price         = EXCLUDED.price,
			review_rating = EXCLUDED.review_rating,
			review_count  = EXCLUDED.review_count,
			buybox_price  = EXCLUDED.buybox_price,
			updated_at    = NOW()
		RETURNING id
	`

	// Point inserts are append-only: the first observation of a natural key
	// wins and re-observations are silently dropped, never overwritten.
	queryInsertPricePoint = `
		INSERT INTO prices (product_id, ts, price, buybox_price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id, ts) DO NOTHING
	`

	queryInsertRatingPoint = `
		INSERT INTO ratings (product_id, ts, rating, review_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id, ts) DO NOTHING
	`

	queryInsertRankPoint = `
		INSERT INTO sales_rank_history (product_id, ts, category, rank)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id, ts, category) DO NOTHING
	`
)

// Read-side SQL. Listing and detail COALESCE the snapshot columns with the
// latest stored price/rating observation so products synced before the
// snapshot columns existed still resolve.

const (
	cteLatestPrice = `
		SELECT p1.product_id, p1.price
		FROM prices p1
		JOIN (SELECT product_id, MAX(ts) AS ts FROM prices GROUP BY product_id) p2
		  ON p1.product_id = p2.product_id AND p1.ts = p2.ts
	`

	cteLatestRating = `
		SELECT r1.product_id, r1.rating, r1.review_count
		FROM ratings r1
		JOIN (SELECT product_id, MAX(ts) AS ts FROM ratings GROUP BY product_id) r2
		  ON r1.product_id = r2.product_id AND r1.ts = r2.ts
	`

	productViewColumns = `
		pr.asin,
		pr.title,
		pr.brand,
		pr.category,
		pr.image_url,
		pr.product_url,
		pl.name AS platform,
		COALESCE(pr.price, lp.price) AS price,
		COALESCE(pr.review_rating, lr.rating) AS rating,
		COALESCE(pr.review_count, lr.review_count) AS review_count,
		pr.updated_at
	`

	productViewFrom = `
		FROM products pr
		JOIN platforms pl ON pr.platform_id = pl.id
		LEFT JOIN lp ON lp.product_id = pr.id
		LEFT JOIN lr ON lr.product_id = pr.id
	`

	queryProductDetail = `
		WITH lp AS (` + cteLatestPrice + `), lr AS (` + cteLatestRating + `)
		SELECT ` + productViewColumns + productViewFrom + `
		WHERE pl.name = $1 AND pr.asin = $2
		LIMIT 1
	`

	queryHistoryMeta = `
		SELECT pr.id, pr.updated_at
		FROM products pr
		JOIN platforms pl ON pr.platform_id = pl.id
		WHERE pl.name = $1 AND pr.asin = $2
		LIMIT 1
	`

	queryPriceHistory = `
		SELECT ts, price, buybox_price, currency
		FROM prices
		WHERE product_id = $1
		ORDER BY ts ASC
		LIMIT $2
	`

	queryRankHistory = `
		SELECT ts, category, rank
		FROM sales_rank_history
		WHERE product_id = $1
		ORDER BY ts ASC
		LIMIT $2
	`
)
