package orm

import "github.com/cakephp/cakephp-sub067/orm/internal/errs"

// 将内部的 sentinel error 暴露出去
var (
	// ErrNoRows 代表没有找到数据
	ErrNoRows = errs.ErrNoRows
	// ErrInvalidArgument 用 errors.Is 判断
	ErrInvalidArgument    = errs.ErrInvalidArgument
	ErrUnknownAssociation = errs.ErrUnknownAssociation
	ErrUnknownDialect     = errs.ErrUnknownDialect
	ErrNoResult           = errs.ErrNoResult
)
