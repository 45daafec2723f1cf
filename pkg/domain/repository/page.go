package repository

import "github.com/photox-team/photox-app/pkg/constant"

// PageQuery 分页参数，Page 从 1 开始
type PageQuery struct {
	Page     int
	PageSize int
}

// Normalize 把越界的分页参数收敛到默认值和上限
func (p PageQuery) Normalize(defaultSize int) PageQuery {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = defaultSize
	}
	if p.PageSize > constant.MaxPageSize {
		p.PageSize = constant.MaxPageSize
	}
	return p
}

func (p PageQuery) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// PageResult 分页查询结果
type PageResult[T any] struct {
	Items    []T
	Total    int64
	Page     int
	PageSize int
}
