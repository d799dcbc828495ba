package orm

import (
	"log/slog"

	"github.com/cakephp/cakephp-sub067/orm/internal/valuer"
	"github.com/cakephp/cakephp-sub067/orm/model"
)

type core struct {
	dialect    Dialect
	r          model.Registry // 存储数据库表和 struct 映射关系的实例
	valCreator valuer.Creator // 与DB交互映射的实现
	mdls       []Middleware
	tables     *tableLocator
	logger     *slog.Logger
}
