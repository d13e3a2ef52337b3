package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type repository struct {
	db sqlx.ExtContext
}

func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sqlx.Tx) Repository {
	return &repository{db: tx}
}

func (r *repository) ActiveRules(ctx context.Context, tenantID int, at time.Time) ([]Rule, error) {
	query := `
		SELECT id, tenant_id, name, price, multiplier, priority, active, starts_at, ends_at, weekday_mask
		FROM price_rules
		WHERE tenant_id = $1 AND active AND starts_at <= $2 AND ends_at >= $2
		ORDER BY id
	`

	var rules []Rule
	if err := sqlx.SelectContext(ctx, r.db, &rules, query, tenantID, at); err != nil {
		return nil, fmt.Errorf("select price rules: %w", err)
	}
	if len(rules) == 0 {
		return rules, nil
	}

	ids := make([]int64, len(rules))
	byID := make(map[int]int, len(rules))
	for i, rule := range rules {
		ids[i] = int64(rule.ID)
		byID[rule.ID] = i
	}

	var scopes []Scope
	err := sqlx.SelectContext(ctx, r.db, &scopes, `
		SELECT rule_id, scope_type, entity_id
		FROM price_rule_scopes
		WHERE rule_id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("select price rule scopes: %w", err)
	}

	for _, s := range scopes {
		if i, ok := byID[s.RuleID]; ok {
			rules[i].Scopes = append(rules[i].Scopes, s)
		}
	}

	return rules, nil
}
