package orm

import (
	"sync"

	"github.com/cakephp/cakephp-sub067/orm/model"
	"github.com/go-openapi/inflect"
)

type TableOption func(t *Table)

// TableWithAlias 设置表在 SQL 里的别名，默认是表名的驼峰形式，例如 users -> Users
func TableWithAlias(alias string) TableOption {
	return func(t *Table) {
		t.alias = alias
	}
}

// Table 是一张表的元数据加上它声明的关联
// 关联在初始化阶段声明，之后所有针对这张表的查询共用
type Table struct {
	c     core
	model *model.Model
	alias string

	mu           sync.RWMutex
	associations map[string]*Association
	order        []string
}

// tableLocator 按模型缓存 Table，保证同一个模型只有一个 Table
type tableLocator struct {
	tables sync.Map
}

func newTableLocator() *tableLocator {
	return &tableLocator{}
}

func (l *tableLocator) get(c core, m *model.Model) *Table {
	if t, ok := l.tables.Load(m); ok {
		return t.(*Table)
	}
	t, _ := l.tables.LoadOrStore(m, &Table{
		c:            c,
		model:        m,
		alias:        inflect.Camelize(m.TableName),
		associations: make(map[string]*Association, 4),
	})
	return t.(*Table)
}

// Table 返回 val 对应的 Table，val 必须是结构体指针
func (db *DB) Table(val any, opts ...TableOption) (*Table, error) {
	m, err := db.r.Get(val)
	if err != nil {
		return nil, err
	}
	t := db.tables.get(db.core, m)
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// MustTable 和 Table 一样，出错的时候 panic
func (db *DB) MustTable(val any, opts ...TableOption) *Table {
	t, err := db.Table(val, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

func (t *Table) Alias() string {
	return t.alias
}

func (t *Table) Model() *model.Model {
	return t.model
}

// Association 按名字查找关联
func (t *Table) Association(name string) (*Association, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	a, ok := t.associations[name]
	return a, ok
}

// Associations 按声明顺序返回全部关联
func (t *Table) Associations() []*Association {
	t.mu.RLock()
	defer t.mu.RUnlock()
	res := make([]*Association, 0, len(t.order))
	for _, name := range t.order {
		res = append(res, t.associations[name])
	}
	return res
}

func (t *Table) BelongsTo(name string, target any, opts ...AssociationOption) (*Association, error) {
	return t.associate(belongsTo, name, target, opts)
}

func (t *Table) HasOne(name string, target any, opts ...AssociationOption) (*Association, error) {
	return t.associate(hasOne, name, target, opts)
}

func (t *Table) HasMany(name string, target any, opts ...AssociationOption) (*Association, error) {
	return t.associate(hasMany, name, target, opts)
}

func (t *Table) BelongsToMany(name string, target any, opts ...AssociationOption) (*Association, error) {
	return t.associate(belongsToMany, name, target, opts)
}

func (t *Table) associate(typ associationType, name string, target any, opts []AssociationOption) (*Association, error) {
	tm, err := t.c.r.Get(target)
	if err != nil {
		return nil, err
	}
	a, err := newAssociation(typ, name, t, t.c.tables.get(t.c, tm), opts)
	if err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.associations[name]; !ok {
		t.order = append(t.order, name)
	}
	t.associations[name] = a
	return a, nil
}
