package oracles

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Oracle is a query that must return no rows while the store is consistent.
type Oracle struct {
	Name string
	SQL  string
}

func All() []Oracle {
	return []Oracle{
		{
			Name: "O1_unique_business_id",
			SQL: `SELECT data->>'businessId', COUNT(*) FROM documents
                  WHERE collection = 'salons'
                  GROUP BY 1 HAVING COUNT(*) > 1`,
		},
		{
			Name: "O2_unique_user_email",
			SQL: `SELECT data->>'email', COUNT(*) FROM documents
                  WHERE collection = 'users'
                  GROUP BY 1 HAVING COUNT(*) > 1`,
		},
		{
			Name: "O3_business_claim_matches_salon",
			SQL: `SELECT s.id FROM documents s
                  LEFT JOIN documents c ON c.collection = 'businessIds' AND c.id = s.data->>'businessId'
                  WHERE s.collection = 'salons'
                    AND (c.id IS NULL OR c.data->>'salonId' <> s.id)`,
		},
		{
			Name: "O4_credential_has_profile",
			SQL: `SELECT c.id FROM documents c
                  WHERE c.collection = 'credentials'
                    AND NOT EXISTS (SELECT 1 FROM documents u
                                    WHERE u.collection = 'users' AND u.id = c.data->>'uid')`,
		},
		{
			Name: "O5_no_dangling_stylist_ref",
			SQL: `SELECT s.id, ref FROM documents s,
                         jsonb_array_elements_text(COALESCE(s.data->'stylistIds', '[]'::jsonb)) AS ref
                  WHERE s.collection = 'salons'
                    AND NOT EXISTS (SELECT 1 FROM documents st
                                    WHERE st.collection = 'stylists' AND st.id = ref)`,
		},
		{
			Name: "O6_review_count",
			SQL: `SELECT s.id FROM documents s
                  WHERE s.collection = 'salons'
                    AND COALESCE((s.data->>'reviewCount')::numeric, 0) <>
                        (SELECT COUNT(*) FROM documents r
                         WHERE r.collection = 'reviews' AND r.data->>'salonId' = s.id)`,
		},
	}
}

// Run executes all oracles and returns the first failure (name and sample row text) or empty name if all pass.
func Run(ctx context.Context, pool *pgxpool.Pool) (string, string, error) {
	for _, o := range All() {
		rows, err := pool.Query(ctx, o.SQL)
		if err != nil {
			return o.Name, "", fmt.Errorf("oracle %s: %w", o.Name, err)
		}
		has := rows.Next()
		if has {
			vals, err := rows.Values()
			rows.Close()
			if err != nil {
				return o.Name, "", err
			}
			return o.Name, fmt.Sprintf("%v", vals), nil
		}
		rows.Close()
	}
	return "", "", nil
}
