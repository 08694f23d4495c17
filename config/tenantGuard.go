package config

import (
	"context"
	"errors"
	"reflect"
	"strings"

	"github.com/mmdatafocus/mailroom_backend/appctx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/schema"
)

const tenantColumn = "tenant_id"

// ErrCrossTenantWrite is returned when a create under a pinned tenant carries a
// different tenant_id.
var ErrCrossTenantWrite = errors.New("tenant guard: record belongs to another tenant")

// TenantGuardPlugin scopes reads and writes on tables with a tenant_id column.
//
// Two scopes exist:
//   - request scope: the caller's token tenant. Admin tokens bypass it, and an
//     explicit tenant_id filter in the statement replaces it.
//   - pinned scope: set once a sync has loaded its integration. It applies to
//     everyone, admins included, is never replaced by explicit filters, and
//     rejects creates stamped with another tenant.
//
// Raw SQL is not scoped.
type TenantGuardPlugin struct{}

func NewTenantGuardPlugin() *TenantGuardPlugin { return &TenantGuardPlugin{} }

func (p *TenantGuardPlugin) Name() string { return "tenant_guard" }

func (p *TenantGuardPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	steps := []error{
		cb.Query().Before("gorm:query").Register("tenant_guard:query", scopeStatement),
		cb.Row().Before("gorm:row").Register("tenant_guard:row", scopeStatement),
		cb.Update().Before("gorm:update").Register("tenant_guard:update", scopeStatement),
		cb.Delete().Before("gorm:delete").Register("tenant_guard:delete", scopeStatement),
		cb.Create().Before("gorm:begin_transaction").Register("tenant_guard:create", checkPinnedCreate),
	}
	return errors.Join(steps...)
}

// tenantScope resolves which tenant a statement is limited to. pinned reports
// whether the scope came from a loaded integration.
func tenantScope(ctx context.Context) (tenantId string, pinned bool) {
	if v, ok := appctx.GetString(ctx, appctx.ContextKeyPinnedTenantId); ok && v != "" {
		return v, true
	}
	if admin, _ := appctx.GetBool(ctx, appctx.ContextKeyIsAdmin); admin {
		return "", false
	}
	v, _ := appctx.GetString(ctx, appctx.ContextKeyTenantId)
	return v, false
}

func tenantField(stmt *gorm.Statement) *schema.Field {
	if stmt == nil || stmt.Schema == nil {
		return nil
	}
	return stmt.Schema.LookUpField(tenantColumn)
}

func scopeStatement(db *gorm.DB) {
	stmt := db.Statement
	if stmt == nil || stmt.Context == nil || tenantField(stmt) == nil {
		return
	}
	tenantId, pinned := tenantScope(stmt.Context)
	if tenantId == "" {
		return
	}
	if !pinned && whereFiltersTenant(stmt.Clauses["WHERE"]) {
		return
	}
	stmt.AddClause(clause.Where{Exprs: []clause.Expression{
		clause.Eq{Column: clause.Column{Table: stmt.Table, Name: tenantColumn}, Value: tenantId},
	}})
}

func checkPinnedCreate(db *gorm.DB) {
	stmt := db.Statement
	if stmt == nil || stmt.Context == nil {
		return
	}
	field := tenantField(stmt)
	if field == nil {
		return
	}
	tenantId, pinned := tenantScope(stmt.Context)
	if !pinned {
		return
	}
	rv := reflect.Indirect(stmt.ReflectValue)
	switch rv.Kind() {
	case reflect.Struct:
		if !rowBelongsTo(stmt.Context, field, rv, tenantId) {
			_ = db.AddError(ErrCrossTenantWrite)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			if !rowBelongsTo(stmt.Context, field, reflect.Indirect(rv.Index(i)), tenantId) {
				_ = db.AddError(ErrCrossTenantWrite)
				return
			}
		}
	}
}

func rowBelongsTo(ctx context.Context, field *schema.Field, row reflect.Value, tenantId string) bool {
	v, zero := field.ValueOf(ctx, row)
	if zero {
		return false
	}
	s, ok := v.(string)
	return ok && s == tenantId
}

func whereFiltersTenant(c clause.Clause) bool {
	w, ok := c.Expression.(clause.Where)
	if !ok {
		return false
	}
	return anyMentionsTenant(w.Exprs)
}

func anyMentionsTenant(exprs []clause.Expression) bool {
	for _, e := range exprs {
		if mentionsTenant(e) {
			return true
		}
	}
	return false
}

func mentionsTenant(e clause.Expression) bool {
	switch v := e.(type) {
	case clause.Eq:
		return isTenantColumn(v.Column)
	case clause.Neq:
		return isTenantColumn(v.Column)
	case clause.IN:
		return isTenantColumn(v.Column)
	case clause.AndConditions:
		return anyMentionsTenant(v.Exprs)
	case clause.OrConditions:
		return anyMentionsTenant(v.Exprs)
	case clause.Expr:
		return strings.Contains(strings.ToLower(v.SQL), tenantColumn)
	}
	return false
}

func isTenantColumn(col any) bool {
	switch c := col.(type) {
	case string:
		return strings.EqualFold(c, tenantColumn)
	case clause.Column:
		return strings.EqualFold(c.Name, tenantColumn)
	}
	return false
}
