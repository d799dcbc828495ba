package orm

import (
	"context"
	"sort"
	"strings"

	"github.com/cakephp/cakephp-sub067/orm/internal/errs"
	"github.com/cakephp/cakephp-sub067/orm/model"
	"github.com/go-openapi/inflect"
	"github.com/gotomicro/ekit/slice"
)

type associationType string

const (
	belongsTo     associationType = "belongsTo"
	hasOne        associationType = "hasOne"
	hasMany       associationType = "hasMany"
	belongsToMany associationType = "belongsToMany"
)

// Strategy 决定关联数据怎么取出来
type Strategy string

const (
	// StrategyJoin 在主查询里面 JOIN 目标表，只对一对一的关联有效
	StrategyJoin Strategy = "join"
	// StrategySelect 先取出主查询的键，再用 IN (?, ...) 单独查询
	StrategySelect Strategy = "select"
	// StrategySubquery 单独查询，条件是 IN (主查询的子查询)
	StrategySubquery Strategy = "subquery"
)

// junctionKey 是多对多查询里面，中间表指向主表的列的别名
const junctionKey = "_cake_junction_key_"

var validStrategies = map[associationType][]Strategy{
	belongsTo:     {StrategyJoin, StrategySelect},
	hasOne:        {StrategyJoin, StrategySelect},
	hasMany:       {StrategySelect, StrategySubquery},
	belongsToMany: {StrategySelect, StrategySubquery},
}

type AssociationOption func(a *Association)

// WithForeignKey 设置外键。belongsTo 的外键在主表上，其它关联的外键在目标表（或者中间表）上
func WithForeignKey(key string) AssociationOption {
	return func(a *Association) {
		a.foreignKey = key
	}
}

// WithBindingKey 设置外键指向的列，默认是主键
func WithBindingKey(key string) AssociationOption {
	return func(a *Association) {
		a.bindingKey = key
	}
}

// WithTargetForeignKey 多对多关联里，中间表指向目标表的列
func WithTargetForeignKey(key string) AssociationOption {
	return func(a *Association) {
		a.targetForeignKey = key
	}
}

// WithThrough 多对多关联的中间表
func WithThrough(table string) AssociationOption {
	return func(a *Association) {
		a.through = table
	}
}

// WithProperty 设置关联数据放在结果里的名字
func WithProperty(property string) AssociationOption {
	return func(a *Association) {
		a.property = property
	}
}

// WithConditions 追加到关联查询（或者 JOIN ON）上的条件
func WithConditions(ps ...Predicate) AssociationOption {
	return func(a *Association) {
		a.conditions = append(a.conditions, ps...)
	}
}

// WithSort 关联查询的排序，JOIN 的时候没有作用
func WithSort(obs ...OrderBy) AssociationOption {
	return func(a *Association) {
		a.sort = append(a.sort, obs...)
	}
}

// WithFields 只查询目标表的这些列
func WithFields(fields ...string) AssociationOption {
	return func(a *Association) {
		a.fields = fields
	}
}

func WithStrategy(s Strategy) AssociationOption {
	return func(a *Association) {
		a.strategy = s
	}
}

// WithJoinType 设置 JOIN 的类型，默认是 LEFT
func WithJoinType(typ string) AssociationOption {
	return func(a *Association) {
		a.joinType = strings.ToUpper(typ)
	}
}

// Association 描述主表和目标表之间的关系
// 声明之后不会再被修改，所有针对主表的查询共用
type Association struct {
	typ      associationType
	name     string
	property string
	source   *Table
	target   *Table

	foreignKey string
	bindingKey string

	// 多对多
	through          string
	junction         *model.Model
	targetForeignKey string

	conditions []Predicate
	sort       []OrderBy
	fields     []string
	strategy   Strategy
	joinType   string
}

func newAssociation(typ associationType, name string, source, target *Table, opts []AssociationOption) (*Association, error) {
	a := &Association{
		typ:      typ,
		name:     name,
		source:   source,
		target:   target,
		joinType: "LEFT",
	}
	for _, opt := range opts {
		opt(a)
	}
	if err := a.normalize(); err != nil {
		return nil, err
	}
	return a, nil
}

// normalize 按照命名约定补全没有设置的选项，并且检查列是否存在
func (a *Association) normalize() error {
	singular := inflect.Underscore(inflect.Singularize(a.name))
	if a.property == "" {
		if a.isToOne() {
			a.property = singular
		} else {
			a.property = inflect.Underscore(a.name)
		}
	}
	if a.strategy == "" {
		if a.isToOne() {
			a.strategy = StrategyJoin
		} else {
			a.strategy = StrategySelect
		}
	}
	if !slice.Contains(validStrategies[a.typ], a.strategy) {
		return errs.NewErrInvalidStrategy(a.name, string(a.strategy))
	}

	sourceFk := inflect.Underscore(inflect.Singularize(a.source.alias)) + "_id"
	switch a.typ {
	case belongsTo:
		if a.foreignKey == "" {
			a.foreignKey = singular + "_id"
		}
		if a.bindingKey == "" {
			if a.target.model.PrimaryKey == nil {
				return errs.ErrNoPrimaryKey
			}
			a.bindingKey = a.target.model.PrimaryKey.ColName
		}
		return a.checkColumns(a.source.model, a.foreignKey, a.target.model, a.bindingKey)
	case hasOne, hasMany:
		if a.foreignKey == "" {
			a.foreignKey = sourceFk
		}
		if a.bindingKey == "" {
			if a.source.model.PrimaryKey == nil {
				return errs.ErrNoPrimaryKey
			}
			a.bindingKey = a.source.model.PrimaryKey.ColName
		}
		return a.checkColumns(a.source.model, a.bindingKey, a.target.model, a.foreignKey)
	default:
		if a.foreignKey == "" {
			a.foreignKey = sourceFk
		}
		if a.targetForeignKey == "" {
			a.targetForeignKey = singular + "_id"
		}
		if a.source.model.PrimaryKey == nil || a.target.model.PrimaryKey == nil {
			return errs.ErrNoPrimaryKey
		}
		if a.bindingKey == "" {
			a.bindingKey = a.source.model.PrimaryKey.ColName
		}
		if a.through == "" {
			tables := []string{a.source.model.TableName, a.target.model.TableName}
			sort.Strings(tables)
			a.through = strings.Join(tables, "_")
		}
		a.junction = junctionModel(a.through, a.foreignKey, a.targetForeignKey)
		return a.checkColumns(a.source.model, a.bindingKey, a.target.model, a.target.model.PrimaryKey.ColName)
	}
}

func (a *Association) checkColumns(sm *model.Model, sourceCol string, tm *model.Model, targetCol string) error {
	if _, ok := sm.ColumnMap[sourceCol]; !ok {
		return errs.NewErrUnknownColumn(sm.TableName + "." + sourceCol)
	}
	if _, ok := tm.ColumnMap[targetCol]; !ok {
		return errs.NewErrUnknownColumn(tm.TableName + "." + targetCol)
	}
	return nil
}

// junctionModel 中间表没有对应的结构体，只需要两个外键列
func junctionModel(table string, keys ...string) *model.Model {
	m := &model.Model{
		TableName: table,
		Fields:    make([]*model.Field, 0, len(keys)),
		FieldMap:  make(map[string]*model.Field, len(keys)),
		ColumnMap: make(map[string]*model.Field, len(keys)),
	}
	for i, k := range keys {
		fd := &model.Field{ColName: k, GoName: k, Index: i}
		m.Fields = append(m.Fields, fd)
		m.FieldMap[k] = fd
		m.ColumnMap[k] = fd
	}
	return m
}

func (a *Association) Name() string {
	return a.name
}

func (a *Association) Property() string {
	return a.property
}

func (a *Association) Target() *Table {
	return a.target
}

func (a *Association) Strategy() Strategy {
	return a.strategy
}

func (a *Association) ForeignKey() string {
	return a.foreignKey
}

func (a *Association) BindingKey() string {
	return a.bindingKey
}

// Through 返回多对多的中间表，其它关联返回空字符串
func (a *Association) Through() string {
	return a.through
}

func (a *Association) isToOne() bool {
	return a.typ == belongsTo || a.typ == hasOne
}

// requiresKeys 为 true 的时候，预加载之前要先从主查询的结果里收集键
// JOIN 的关联退回到单独查询的时候也按 select 处理，键已经在主查询的结果里了
func (a *Association) requiresKeys() bool {
	return a.strategy != StrategySubquery
}

// sourceKey 是主表这边参与关联的列
func (a *Association) sourceKey() string {
	if a.typ == belongsTo {
		return a.foreignKey
	}
	return a.bindingKey
}

// targetKey 是目标查询结果里和 sourceKey 对应的列
func (a *Association) targetKey() string {
	switch a.typ {
	case belongsTo:
		return a.bindingKey
	case belongsToMany:
		return junctionKey
	default:
		return a.foreignKey
	}
}

func (a *Association) targetFields() []string {
	if len(a.fields) > 0 {
		return a.fields
	}
	return a.target.model.ColumnNames()
}

// attachTo 把一对一的关联 JOIN 到 q 上，目标表的列以 Alias__col 的形式查出来
func (a *Association) attachTo(q *selectQuery) {
	if q.alias == "" {
		q.alias = a.source.alias
	}
	src := q.qualifier()

	var on Predicate
	if a.typ == belongsTo {
		on = Column{table: a.name, name: a.bindingKey}.EQ(Column{table: src, name: a.foreignKey})
	} else {
		on = Column{table: a.name, name: a.foreignKey}.EQ(Column{table: src, name: a.bindingKey})
	}
	q.joins = append(q.joins, join{
		typ:   a.joinType,
		table: a.target.model.TableName,
		alias: a.name,
		model: a.target.model,
		on:    append([]Predicate{on}, a.conditions...),
	})
	fields, key := a.joinFields()
	for _, col := range fields {
		q.extra = append(q.extra, Column{table: a.name, name: col, alias: a.name + "__" + col})
	}
	q.decorators = append(q.decorators, nestJoined(a.name, a.property, key))
}

// joinFields 返回 JOIN 进来的列和其中连接键的名字
// 连接键匹配上的时候一定不是 NULL，没有选上的话会补上
func (a *Association) joinFields() ([]string, string) {
	key := a.bindingKey
	if a.typ == hasOne {
		key = a.foreignKey
	}
	fields := a.targetFields()
	for _, f := range fields {
		if fd, ok := a.target.model.FieldByColumnOrName(f); ok && fd.ColName == key {
			return fields, f
		}
	}
	return append(append([]string(nil), fields...), key), key
}

// eagerOptions 是预加载需要的主查询信息
type eagerOptions struct {
	// source 是已经挂上 JOIN 但是还没有翻译的主查询
	source *selectQuery
	// rows 是主查询的结果，只有 requiresKeys 的时候才会用到
	rows     []Row
	children []*containNode
}

// eagerLoader 执行关联查询，返回一个把关联数据注入到主查询结果行里的函数
func (a *Association) eagerLoader(ctx context.Context, opts eagerOptions) (func(Row) Row, error) {
	tq := a.targetQuery(opts)

	matches := make(map[string][]Row, len(opts.rows))
	run := true
	if a.requiresKeys() {
		keys := collectKeys(opts.rows, a.sourceKey())
		if len(keys) == 0 {
			run = false
		}
		tq.where = append(tq.where, a.targetKeyColumn().In(keys...))
	} else {
		tq.where = append(tq.where, Predicate{
			left:  a.targetKeyColumn(),
			op:    opIn,
			right: subqueryExpr{q: opts.source.subqueryFor(a.sourceKey())},
		})
	}

	if run {
		rows, err := tq.all(ctx)
		if err != nil {
			return nil, err
		}
		for _, r := range rows {
			k, ok := keyOf(r[a.targetKey()])
			if !ok {
				continue
			}
			if a.typ == belongsToMany {
				delete(r, junctionKey)
			}
			matches[k] = append(matches[k], r)
		}
	}

	return func(row Row) Row {
		var found []Row
		if k, ok := keyOf(row[a.sourceKey()]); ok {
			found = matches[k]
		}
		if a.isToOne() {
			if len(found) == 0 {
				row[a.property] = nil
			} else {
				row[a.property] = found[0]
			}
			return row
		}
		if found == nil {
			found = []Row{}
		}
		row[a.property] = found
		return row
	}, nil
}

// targetQuery 构造目标表的查询，不包含键的过滤条件
func (a *Association) targetQuery(opts eagerOptions) *selectQuery {
	tq := newSelectQuery(opts.source.sess, a.target.model)
	tq.alias = a.name
	for _, f := range a.fields {
		tq.columns = append(tq.columns, C(f))
	}
	tq.where = append(tq.where, a.conditions...)
	tq.orderBy = append(tq.orderBy, a.sort...)
	tq.contain = containPaths(opts.children)

	if a.typ == belongsToMany {
		jAlias := inflect.Camelize(a.through)
		tq.joins = append(tq.joins, join{
			typ:   "INNER",
			table: a.through,
			alias: jAlias,
			model: a.junction,
			on: []Predicate{
				Column{table: jAlias, name: a.targetForeignKey}.
					EQ(Column{table: a.name, name: a.target.model.PrimaryKey.ColName}),
			},
		})
		tq.extra = append(tq.extra, Column{table: jAlias, name: a.foreignKey, alias: junctionKey})
	}
	return tq
}

func (a *Association) targetKeyColumn() Column {
	if a.typ == belongsToMany {
		return Column{table: inflect.Camelize(a.through), name: a.foreignKey}
	}
	return Column{table: a.name, name: a.targetKey()}
}

// collectKeys 收集去重之后的键，nil 会被忽略
func collectKeys(rows []Row, col string) []any {
	seen := make(map[string]struct{}, len(rows))
	vals := slice.FilterMap(rows, func(idx int, r Row) (any, bool) {
		k, ok := keyOf(r[col])
		if !ok {
			return nil, false
		}
		if _, dup := seen[k]; dup {
			return nil, false
		}
		seen[k] = struct{}{}
		return normalizeKey(r[col]), true
	})
	return vals
}

// normalizeKey 驱动可能以 []byte 返回键，作为参数的时候转换成 string
func normalizeKey(v any) any {
	if bs, ok := v.([]byte); ok {
		return string(bs)
	}
	return v
}
