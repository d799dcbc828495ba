package orm

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Author struct {
	Id       int64
	Name     string
	Articles []*Article
}

type Article struct {
	Id       int64
	AuthorId int64
	Title    string
	Author   *Author
	Tags     []*Tag
	Comments []Comment
}

type Tag struct {
	Id   int64
	Name string
}

type Comment struct {
	Id        int64
	ArticleId int64
	Body      string
}

type blogOptions struct {
	articles []AssociationOption
	tags     []AssociationOption
	author   []AssociationOption
	comments []AssociationOption
}

// blogDB 声明 Author -> Articles -> (Author, Tags, Comments) 的关联
func blogDB(t *testing.T, db *DB, opts blogOptions) {
	authors := db.MustTable(&Author{})
	articles := db.MustTable(&Article{})
	_, err := authors.HasMany("Articles", &Article{}, opts.articles...)
	require.NoError(t, err)
	_, err = articles.BelongsTo("Author", &Author{}, opts.author...)
	require.NoError(t, err)
	_, err = articles.BelongsToMany("Tags", &Tag{}, opts.tags...)
	require.NoError(t, err)
	_, err = articles.HasMany("Comments", &Comment{}, opts.comments...)
	require.NoError(t, err)
}

func TestTable_AssociationDefaults(t *testing.T) {
	db := memoryDB(t)
	blogDB(t, db, blogOptions{})

	authors := db.MustTable(&Author{})
	assert.Equal(t, "Author", authors.Alias())
	a, ok := authors.Association("Articles")
	require.True(t, ok)
	assert.Equal(t, "author_id", a.ForeignKey())
	assert.Equal(t, "id", a.BindingKey())
	assert.Equal(t, "articles", a.Property())
	assert.Equal(t, StrategySelect, a.Strategy())
	assert.True(t, a.requiresKeys())

	articles := db.MustTable(&Article{})
	a, ok = articles.Association("Author")
	require.True(t, ok)
	assert.Equal(t, "author_id", a.ForeignKey())
	assert.Equal(t, "id", a.BindingKey())
	assert.Equal(t, "author", a.Property())
	assert.Equal(t, StrategyJoin, a.Strategy())
	assert.True(t, a.requiresKeys())

	a, ok = articles.Association("Tags")
	require.True(t, ok)
	assert.Equal(t, "article_tag", a.Through())
	assert.Equal(t, "article_id", a.ForeignKey())
	assert.Equal(t, "tag_id", a.targetForeignKey)
	assert.Equal(t, "tags", a.Property())

	names := make([]string, 0, 3)
	for _, a := range articles.Associations() {
		names = append(names, a.Name())
	}
	assert.Equal(t, []string{"Author", "Tags", "Comments"}, names)
}

func TestTable_AssociationErrors(t *testing.T) {
	db := memoryDB(t)
	authors := db.MustTable(&Author{})

	testCases := []struct {
		name    string
		declare func() error
		wantErr error
	}{
		{
			name: "invalid strategy",
			declare: func() error {
				_, err := authors.HasMany("Articles", &Article{}, WithStrategy(StrategyJoin))
				return err
			},
			wantErr: ErrInvalidArgument,
		},
		{
			name: "unknown foreign key",
			declare: func() error {
				_, err := authors.HasMany("Articles", &Article{}, WithForeignKey("writer_id"))
				return err
			},
		},
		{
			name: "target not a struct pointer",
			declare: func() error {
				_, err := authors.HasMany("Articles", Article{})
				return err
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.declare()
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

func TestBelongsTo_AttachTo(t *testing.T) {
	testCases := []struct {
		name string
		opts []AssociationOption
		q    func(db *DB) QueryBuilder
		want *Query
	}{
		{
			name: "left join",
			q: func(db *DB) QueryBuilder {
				return NewSelector[Article](db).Contain("Author").Where(C("Id").EQ(1))
			},
			want: &Query{
				SQL: "SELECT `Article`.`id`,`Article`.`author_id`,`Article`.`title`,`Author`.`id` AS `Author__id`,`Author`.`name` AS `Author__name` " +
					"FROM `article` AS `Article` LEFT JOIN `author` AS `Author` ON `Author`.`id` = `Article`.`author_id` WHERE `Article`.`id` = ?;",
				Args: []any{1},
			},
		},
		{
			name: "inner join with conditions and fields",
			opts: []AssociationOption{
				WithJoinType("inner"),
				WithConditions(C("Author.Name").NEQ("")),
				WithFields("name"),
			},
			q: func(db *DB) QueryBuilder {
				return NewSelector[Article](db).Alias("a").Select(C("Title")).Contain("Author")
			},
			want: &Query{
				SQL: "SELECT `a`.`title`,`Author`.`name` AS `Author__name`,`Author`.`id` AS `Author__id` " +
					"FROM `article` AS `a` INNER JOIN `author` AS `Author` ON (`Author`.`id` = `a`.`author_id`) AND (`Author`.`name` != ?);",
				Args: []any{""},
			},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db := memoryDB(t)
			blogDB(t, db, blogOptions{author: tc.opts})
			q, err := tc.q(db).Build()
			require.NoError(t, err)
			assert.Equal(t, tc.want, q)
		})
	}
}

func TestBelongsTo_Join_Get(t *testing.T) {
	db, mock := mockDB(t)
	blogDB(t, db, blogOptions{})
	rows := sqlmock.NewRows([]string{"id", "author_id", "title", "Author__id", "Author__name"}).
		AddRow(int64(1), int64(7), "Go", int64(7), "Tom").
		AddRow(int64(2), int64(0), "Orphan", nil, nil)
	mock.ExpectQuery("SELECT `Article`.`id`,`Article`.`author_id`,`Article`.`title`,`Author`.`id` AS `Author__id`,`Author`.`name` AS `Author__name` " +
		"FROM `article` AS `Article` LEFT JOIN `author` AS `Author` ON `Author`.`id` = `Article`.`author_id`;").
		WillReturnRows(rows)

	res, err := NewSelector[Article](db).Contain("Author").GetMulti(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []*Article{
		{Id: 1, AuthorId: 7, Title: "Go", Author: &Author{Id: 7, Name: "Tom"}},
		{Id: 2, Title: "Orphan"},
	}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// 自定义的列都是 NULL 的时候，靠连接键判断有没有匹配
func TestBelongsTo_JoinNullableFields(t *testing.T) {
	db, mock := mockDB(t)
	blogDB(t, db, blogOptions{author: []AssociationOption{WithFields("Name")}})
	rows := sqlmock.NewRows([]string{"id", "author_id", "title", "Author__Name", "Author__id"}).
		AddRow(int64(1), int64(7), "Go", nil, int64(7)).
		AddRow(int64(2), int64(0), "Orphan", nil, nil)
	mock.ExpectQuery("SELECT `Article`.`id`,`Article`.`author_id`,`Article`.`title`,`Author`.`name` AS `Author__Name`,`Author`.`id` AS `Author__id` " +
		"FROM `article` AS `Article` LEFT JOIN `author` AS `Author` ON `Author`.`id` = `Article`.`author_id`;").
		WillReturnRows(rows)

	res, err := NewSelector[Article](db).Contain("Author").Rows(context.Background())
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, Row{"Name": nil, "id": int64(7)}, res[0]["author"])
	assert.Nil(t, res[1]["author"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHasMany_EagerLoader(t *testing.T) {
	testCases := []struct {
		name string
		opts []AssociationOption
		mock func(mock sqlmock.Sqlmock)
	}{
		{
			name: "select strategy",
			opts: []AssociationOption{WithSort(Desc("Id"))},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT * FROM `article` AS `Articles` WHERE `Articles`.`author_id` IN (?,?,?) ORDER BY `Articles`.`id` DESC;").
					WithArgs(1, 2, 3).
					WillReturnRows(sqlmock.NewRows([]string{"id", "author_id", "title"}).
						AddRow(11, 1, "b").AddRow(10, 1, "a").AddRow(12, 2, "c"))
			},
		},
		{
			name: "subquery strategy",
			opts: []AssociationOption{WithStrategy(StrategySubquery), WithSort(Desc("Id"))},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery("SELECT * FROM `article` AS `Articles` WHERE `Articles`.`author_id` IN (SELECT `id` FROM `author` WHERE `id` > ?) ORDER BY `Articles`.`id` DESC;").
					WithArgs(0).
					WillReturnRows(sqlmock.NewRows([]string{"id", "author_id", "title"}).
						AddRow(11, 1, "b").AddRow(10, 1, "a").AddRow(12, 2, "c"))
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := mockDB(t)
			blogDB(t, db, blogOptions{articles: tc.opts})
			mock.ExpectQuery("SELECT * FROM `author` WHERE `id` > ? ORDER BY `id` ASC;").
				WithArgs(0).
				WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
					AddRow(1, "Tom").AddRow(2, "Jerry").AddRow(3, "Nobody"))
			tc.mock(mock)

			res, err := NewSelector[Author](db).Where(C("Id").GT(0)).OrderBy(Asc("Id")).
				Contain("Articles").GetMulti(context.Background())
			require.NoError(t, err)
			assert.Equal(t, []*Author{
				{Id: 1, Name: "Tom", Articles: []*Article{
					{Id: 11, AuthorId: 1, Title: "b"},
					{Id: 10, AuthorId: 1, Title: "a"},
				}},
				{Id: 2, Name: "Jerry", Articles: []*Article{{Id: 12, AuthorId: 2, Title: "c"}}},
				{Id: 3, Name: "Nobody", Articles: []*Article{}},
			}, res)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestSubqueryStrategy_KeepsOrderWhenLimited(t *testing.T) {
	db, mock := mockDB(t, DBWithDialect(SQLite3))
	blogDB(t, db, blogOptions{articles: []AssociationOption{WithStrategy(StrategySubquery)}})
	mock.ExpectQuery("SELECT * FROM `author` ORDER BY `name` ASC LIMIT ?;").
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(2, "Jerry").AddRow(1, "Tom"))
	mock.ExpectQuery("SELECT * FROM `article` AS `Articles` WHERE `Articles`.`author_id` IN (SELECT `id` FROM `author` ORDER BY `name` ASC LIMIT ?);").
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "author_id", "title"}).AddRow(10, 1, "a"))

	res, err := NewSelector[Author](db).OrderBy(Asc("Name")).Limit(2).Contain("Articles").Rows(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Row{
		{"id": 2, "name": "Jerry", "articles": []Row{}},
		{"id": 1, "name": "Tom", "articles": []Row{{"id": 10, "author_id": 1, "title": "a"}}},
	}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBelongsToMany_EagerLoader(t *testing.T) {
	db, mock := mockDB(t)
	blogDB(t, db, blogOptions{})
	mock.ExpectQuery("SELECT * FROM `article`;").
		WillReturnRows(sqlmock.NewRows([]string{"id", "author_id", "title"}).
			AddRow(1, 7, "Go").AddRow(2, 7, "Rust"))
	mock.ExpectQuery("SELECT `Tags`.`id`,`Tags`.`name`,`ArticleTag`.`article_id` AS `_cake_junction_key_` FROM `tag` AS `Tags` "+
		"INNER JOIN `article_tag` AS `ArticleTag` ON `ArticleTag`.`tag_id` = `Tags`.`id` WHERE `ArticleTag`.`article_id` IN (?,?);").
		WithArgs(1, 2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "_cake_junction_key_"}).
			AddRow(100, "lang", 1).AddRow(101, "fast", 2).AddRow(100, "lang", 2))

	res, err := NewSelector[Article](db).Contain("Tags").GetMulti(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []*Article{
		{Id: 1, AuthorId: 7, Title: "Go", Tags: []*Tag{{Id: 100, Name: "lang"}}},
		{Id: 2, AuthorId: 7, Title: "Rust", Tags: []*Tag{{Id: 101, Name: "fast"}, {Id: 100, Name: "lang"}}},
	}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEagerLoader_Nested(t *testing.T) {
	db, mock := mockDB(t)
	blogDB(t, db, blogOptions{})
	mock.ExpectQuery("SELECT * FROM `author`;").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "Tom"))
	mock.ExpectQuery("SELECT * FROM `article` AS `Articles` WHERE `Articles`.`author_id` IN (?);").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "author_id", "title"}).AddRow(10, 1, "a"))
	mock.ExpectQuery("SELECT * FROM `comment` AS `Comments` WHERE `Comments`.`article_id` IN (?);").
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "article_id", "body"}).AddRow(5, 10, "nice"))

	res, err := NewSelector[Author](db).Contain("Articles.Comments").GetMulti(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []*Author{
		{Id: 1, Name: "Tom", Articles: []*Article{
			{Id: 10, AuthorId: 1, Title: "a", Comments: []Comment{{Id: 5, ArticleId: 10, Body: "nice"}}},
		}},
	}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// JOIN 的关联带了子关联的时候单独查询，键从主查询的结果里取，
// 不会把 Get 的 LIMIT 带进 IN 子查询
func TestEagerLoader_NestedJoinFallback(t *testing.T) {
	db, mock := mockDB(t)
	blogDB(t, db, blogOptions{})
	mock.ExpectQuery("SELECT * FROM `article` LIMIT ?;").
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "author_id", "title"}).AddRow(1, 7, "Go"))
	mock.ExpectQuery("SELECT * FROM `author` AS `Author` WHERE `Author`.`id` IN (?);").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(7, "Tom"))
	mock.ExpectQuery("SELECT * FROM `article` AS `Articles` WHERE `Articles`.`author_id` IN (?);").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "author_id", "title"}).
			AddRow(1, 7, "Go").
			AddRow(2, 7, "Rust"))

	res, err := NewSelector[Article](db).Contain("Author.Articles").Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Article{
		Id: 1, AuthorId: 7, Title: "Go",
		Author: &Author{Id: 7, Name: "Tom", Articles: []*Article{
			{Id: 1, AuthorId: 7, Title: "Go"},
			{Id: 2, AuthorId: 7, Title: "Rust"},
		}},
	}, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEagerLoader_NoSourceRows(t *testing.T) {
	db, mock := mockDB(t)
	blogDB(t, db, blogOptions{})
	mock.ExpectQuery("SELECT * FROM `author`;").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	res, err := NewSelector[Author](db).Contain("Articles").GetMulti(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContain_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		opts    blogOptions
		q       func(db *DB) QueryBuilder
		wantErr error
	}{
		{
			name: "unknown association",
			q: func(db *DB) QueryBuilder {
				return NewSelector[Author](db).Contain("Books")
			},
			wantErr: ErrUnknownAssociation,
		},
		{
			name: "source key not selected",
			q: func(db *DB) QueryBuilder {
				return NewSelector[Author](db).Select(C("Name")).Contain("Articles")
			},
			wantErr: ErrInvalidArgument,
		},
		{
			name: "target foreign key not selected",
			opts: blogOptions{articles: []AssociationOption{WithFields("Id", "Title")}},
			q: func(db *DB) QueryBuilder {
				return NewSelector[Author](db).Contain("Articles")
			},
			wantErr: ErrInvalidArgument,
		},
		{
			name: "belongs to with select strategy needs the foreign key",
			opts: blogOptions{author: []AssociationOption{WithStrategy(StrategySelect)}},
			q: func(db *DB) QueryBuilder {
				return NewSelector[Article](db).Select(C("Id"), C("Title")).Contain("Author")
			},
			wantErr: ErrInvalidArgument,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db := memoryDB(t)
			blogDB(t, db, tc.opts)
			_, err := tc.q(db).Build()
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

// 嵌套的关联在目标查询执行的时候才会解析
func TestContain_UnknownNested(t *testing.T) {
	db, mock := mockDB(t)
	blogDB(t, db, blogOptions{})
	mock.ExpectQuery("SELECT * FROM `author`;").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "Tom"))

	_, err := NewSelector[Author](db).Contain("Articles.Books").GetMulti(context.Background())
	assert.ErrorIs(t, err, ErrUnknownAssociation)
}

func TestParseContain(t *testing.T) {
	nodes := parseContain([]string{"Articles.Tags", "Articles.Comments", "Profile", "Articles"})
	require.Len(t, nodes, 2)
	assert.Equal(t, "Articles", nodes[0].name)
	assert.Equal(t, []string{"Tags", "Comments"}, containPaths(nodes[0].children))
	assert.Equal(t, "Profile", nodes[1].name)
	assert.Empty(t, nodes[1].children)
	assert.Equal(t, []string{"Articles.Tags", "Articles.Comments", "Profile"}, containPaths(nodes))
}
