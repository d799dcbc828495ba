package orm

import (
	"context"
	"strings"

	"github.com/cakephp/cakephp-sub067/orm/internal/errs"
	"github.com/cakephp/cakephp-sub067/orm/model"
)

// containNode 是 Contain 路径解析之后的树，"Posts.Tags" 是 Posts 下面的 Tags
type containNode struct {
	name     string
	children []*containNode
}

func parseContain(paths []string) []*containNode {
	var roots []*containNode
	for _, p := range paths {
		level := &roots
		for _, name := range strings.Split(p, ".") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			var node *containNode
			for _, n := range *level {
				if n.name == name {
					node = n
					break
				}
			}
			if node == nil {
				node = &containNode{name: name}
				*level = append(*level, node)
			}
			level = &node.children
		}
	}
	return roots
}

// containPaths 是 parseContain 的逆操作，用来把子树交给目标查询
func containPaths(nodes []*containNode) []string {
	var res []string
	for _, n := range nodes {
		if len(n.children) == 0 {
			res = append(res, n.name)
			continue
		}
		for _, c := range containPaths(n.children) {
			res = append(res, n.name+"."+c)
		}
	}
	return res
}

// eagerLoad 是一个需要单独查询的关联
type eagerLoad struct {
	assoc    *Association
	source   *selectQuery
	children []*containNode
}

func (l *eagerLoad) apply(ctx context.Context, rows []Row) ([]Row, error) {
	if len(rows) == 0 {
		return rows, nil
	}
	inject, err := l.assoc.eagerLoader(ctx, eagerOptions{
		source:   l.source,
		rows:     rows,
		children: l.children,
	})
	if err != nil {
		return nil, err
	}
	for i, r := range rows {
		rows[i] = inject(r)
	}
	return rows, nil
}

// attachAssociations 处理 Contain：一对一的关联直接 JOIN，其它的返回 eagerLoad
// 关联按照声明的顺序处理
func (q *selectQuery) attachAssociations() ([]*eagerLoad, error) {
	if len(q.contain) == 0 {
		return nil, nil
	}
	t := q.tables.get(q.core, q.model)
	nodes := make(map[string]*containNode, len(q.contain))
	for _, n := range parseContain(q.contain) {
		if _, ok := t.Association(n.name); !ok {
			return nil, errs.NewErrUnknownAssociation(n.name)
		}
		nodes[n.name] = n
	}

	var pending []*eagerLoad
	for _, a := range t.Associations() {
		n, ok := nodes[a.name]
		if !ok {
			continue
		}
		// JOIN 进来的关联没法再往下预加载，有子关联的时候退回到单独查询
		if a.strategy == StrategyJoin && len(n.children) == 0 {
			a.attachTo(q)
			continue
		}
		pending = append(pending, &eagerLoad{assoc: a, children: n.children})
	}

	for _, l := range pending {
		a := l.assoc
		if !q.selects(a.sourceKey()) {
			return nil, errs.NewErrMissingForeignKey(a.name, a.sourceKey())
		}
		if len(a.fields) > 0 && a.typ != belongsToMany && !containsField(a.target.model, a.fields, a.targetKey()) {
			return nil, errs.NewErrMissingForeignKey(a.name, a.targetKey())
		}
		l.source = q
	}
	return pending, nil
}

// containsField 判断 fields 里面有没有 key 这一列，fields 里可以是字段名或者列名
func containsField(m *model.Model, fields []string, key string) bool {
	for _, f := range fields {
		if fd, ok := m.FieldByColumnOrName(C(f).name); ok && fd.ColName == key {
			return true
		}
	}
	return false
}
